package weaver

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/funvibe/weaver/internal/adapter"
	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/invoker"
	"github.com/funvibe/weaver/internal/renamer"
	"github.com/funvibe/weaver/internal/symbols"
)

// emitter writes the members of one chain. Each link body is consumed by
// exactly one member, so bodies are rewritten in place.
type emitter struct {
	p      *pass
	c      *chain
	token  string
	labels int // Return labels used in the current member
}

func (p *pass) emit(c *chain) (*WeavingResult, error) {
	r := &WeavingResult{
		Decl:        c.decl.ID,
		Qualified:   c.qualified,
		Type:        p.typeName(c.decl.Type),
		Diagnostics: append([]*diagnostics.DiagnosticError(nil), c.diags...),
	}
	switch {
	case c.dropped:
		r.Status = StatusDropped
		return r, nil
	case c.skipped:
		r.Status = StatusSkipped
		return r, nil
	case !c.active():
		r.Status = StatusUnchanged
		return r, nil
	}

	e := &emitter{p: p, c: c}
	e.token, _ = c.decl.CancellationToken()
	if err := e.members(r); err != nil {
		return nil, err
	}
	if d := verify(c, r); d != nil {
		r.Diagnostics = append(r.Diagnostics, d)
		r.Members = nil
		r.SourceRenamedTo = ""
		r.Status = StatusSkipped
		return r, nil
	}
	r.Status = StatusWoven
	r.Fingerprint = fingerprint(r)
	return r, nil
}

func (p *pass) typeName(id symbols.TypeID) string {
	if t := p.comp.Type(id); t != nil {
		return t.Name
	}
	return ""
}

func (e *emitter) members(r *WeavingResult) error {
	c, d := e.c, e.c.decl
	for j, l := range c.links {
		switch {
		case !l.reachable:
			continue
		case l.inline:
			r.Inlined = append(r.Inlined, l.label())
			continue
		case l.kind == linkPartial:
			if j > 0 {
				r.SourceRenamedTo = l.name
			}
			continue
		}
		m := &EmittedMember{
			Name:       l.name,
			Role:       RoleHelper,
			Kind:       d.Kind,
			Visibility: "private",
			Static:     d.Static,
			ReturnType: d.ReturnType,
			Params:     d.Params,
			Bodies:     make(map[symbols.AccessorKind]*ast.Block),
		}
		if l.kind == linkTemplate || l.kind == linkIntroduced {
			m.Layer = l.label()
		}
		if j == 0 {
			m.Role = RolePrimary
			m.Visibility = d.Visibility
			m.Override = d.Overrides
		}
		for _, a := range l.accessors() {
			e.labels = 0
			b, err := e.expand(j, a)
			if err != nil {
				return err
			}
			if l.bodies[a].streams {
				adapter.StreamReturns(b)
			}
			renamer.Rename(b, paramNames(d, a))
			m.Bodies[a] = b
			if a == symbols.AccessorBody {
				m.Async = d.Shape == symbols.ShapeAsync || (d.Shape == symbols.ShapeAsyncIterator && ast.ContainsYield(b))
			}
		}
		r.Members = append(r.Members, m)
	}
	for _, l := range c.links {
		if l.kind == linkTemplate && l.reachable {
			r.Layers = append(r.Layers, l.label())
		}
	}
	if bl := c.bottomLink(); c.backing != "" && bl != nil && bl.reachable {
		r.Members = append(r.Members, &EmittedMember{
			Name:       c.backing,
			Role:       RoleBackingField,
			Kind:       d.Kind,
			Visibility: "private",
			Static:     d.Static,
			ReturnType: d.ReturnType,
		})
	}
	for _, px := range c.set.Proxies() {
		r.Members = append(r.Members, e.proxy(px.Interface, px.Member, px.By.String()))
	}
	return nil
}

func paramNames(d *symbols.Declaration, a symbols.AccessorKind) []string {
	names := make([]string, 0, len(d.Params)+1)
	for _, prm := range d.Params {
		names = append(names, prm.Name)
	}
	switch a {
	case symbols.AccessorSet, symbols.AccessorAdd, symbols.AccessorRemove:
		names = append(names, config.ValueParamName)
	}
	return names
}

// proxy forwards every accessor to the public member with virtual dispatch.
func (e *emitter) proxy(iface, member, layer string) *EmittedMember {
	d := e.c.decl
	if member == "" {
		member = e.c.name
	}
	m := &EmittedMember{
		Name:       member,
		Role:       RoleProxy,
		Kind:       d.Kind,
		Interface:  iface,
		Layer:      layer,
		ReturnType: d.ReturnType,
		Params:     d.Params,
		Bodies:     make(map[symbols.AccessorKind]*ast.Block),
	}
	for _, a := range d.AccessorKinds() {
		t := invoker.Target{Kind: invoker.TargetFinal, Decl: d.ID, Accessor: a}
		call := e.p.resolver.Render(t, &ast.ProceedExpression{Accessor: a}, d.ID, e.p)
		if returnsResult(d, a) {
			m.Bodies[a] = ast.NewBlock(ast.Return(call))
		} else {
			m.Bodies[a] = ast.NewBlock(ast.ExprStmt(call))
		}
	}
	return m
}

// returnsResult reports whether a non-async forwarder returns what it calls,
// including the task of an async method.
func returnsResult(d *symbols.Declaration, a symbols.AccessorKind) bool {
	if a == symbols.AccessorBody {
		return d.Shape != symbols.ShapeVoid
	}
	return d.ReturnsValue(a)
}

// expand returns the final body of link j's accessor a, with every request
// rendered and inlined links spliced in.
func (e *emitter) expand(j int, a symbols.AccessorKind) (*ast.Block, error) {
	c := e.c
	b := c.links[j].bodies[a].block
	var failed error
	ast.RewriteStatements(b, func(s ast.Statement) ([]ast.Statement, bool) {
		pe, pos := positionOf(s)
		r := c.reqs[pe]
		if pe == nil || r == nil {
			return nil, false
		}
		if r.target.Kind == invoker.TargetNone && pos.discarded() {
			return []ast.Statement{}, true
		}
		if !r.inline {
			return nil, false
		}
		if r.target.Index != j+1 || r.target.Decl != c.decl.ID {
			failed = fmt.Errorf("link %d of %s inlines link %d", j, c.qualified, r.target.Index)
			return nil, false
		}
		callee, err := e.expand(r.target.Index, a)
		if err != nil {
			failed = err
			return nil, false
		}
		return e.splice(callee, c.links[r.target.Index], pos, a), true
	})
	if failed != nil {
		return nil, failed
	}
	ast.RewriteExpressions(b, func(x ast.Expression) ast.Expression {
		pe, ok := x.(*ast.ProceedExpression)
		if !ok {
			return x
		}
		r := c.reqs[pe]
		if r == nil {
			return x
		}
		call := e.p.resolver.Render(r.target, pe, c.decl.ID, e.p)
		if call == nil {
			return &ast.DefaultExpression{}
		}
		return adapter.Apply(call, r.glue, e.token)
	})
	return b, nil
}

// splice wraps callee for the statement position it replaces. Returns that
// leave the callee early jump past the splice.
func (e *emitter) splice(callee *ast.Block, l *link, pos position, a symbols.AccessorKind) []ast.Statement {
	callee.Splice = &ast.Splice{Origin: l.label()}
	if pos.kind == posReturn {
		return []ast.Statement{callee}
	}

	var out []ast.Statement
	var target ast.Expression
	switch pos.kind {
	case posDeclare:
		out = append(out, &ast.LocalDeclaration{Type: e.c.decl.ValueType(a), Name: pos.name})
		target = ast.Ident(pos.name)
	case posAssign:
		target = pos.target
	}

	label := ""
	exit := func(up int) ast.Statement {
		if label == "" {
			e.labels++
			label = fmt.Sprintf("%s_%d", config.ReturnLabelPrefix, e.labels)
		}
		return &ast.GotoStatement{Label: label, Up: up}
	}
	tail := ast.Statement(nil)
	if n := len(callee.Statements); n > 0 {
		tail = callee.Statements[n-1]
	}
	rewriteReturns(callee, 0, func(ret *ast.ReturnStatement, depth int) []ast.Statement {
		var stmts []ast.Statement
		if ret.Value != nil {
			if target != nil {
				lifted := ast.Lift(ast.CloneExpression(target), depth+1)
				stmts = append(stmts, ast.ExprStmt(ast.Assign(lifted, "=", ret.Value)))
			} else {
				stmts = append(stmts, ast.Discard(ret.Value))
			}
		}
		if depth != 0 || ret != tail {
			stmts = append(stmts, exit(depth+1))
		}
		return stmts
	})
	out = append(out, callee)
	if label != "" {
		out = append(out, &ast.LabeledStatement{Label: label, Statement: &ast.EmptyStatement{}})
	}
	return out
}

// rewriteReturns replaces the returns below b. depth counts the splices
// entered on the way down.
func rewriteReturns(b *ast.Block, depth int, f func(*ast.ReturnStatement, int) []ast.Statement) {
	if b == nil {
		return
	}
	out := make([]ast.Statement, 0, len(b.Statements))
	for _, s := range b.Statements {
		if ret, ok := s.(*ast.ReturnStatement); ok {
			out = append(out, f(ret, depth)...)
			continue
		}
		rewriteNestedReturns(s, depth, f)
		out = append(out, s)
	}
	b.Statements = out
}

func rewriteNestedReturns(s ast.Statement, depth int, f func(*ast.ReturnStatement, int) []ast.Statement) {
	switch s := s.(type) {
	case *ast.Block:
		if s.Splice != nil {
			depth++
		}
		rewriteReturns(s, depth, f)
	case *ast.IfStatement:
		rewriteReturns(s.Then, depth, f)
		rewriteReturns(s.Else, depth, f)
	case *ast.WhileStatement:
		rewriteReturns(s.Body, depth, f)
	case *ast.ForEachStatement:
		rewriteReturns(s.Body, depth, f)
	case *ast.LabeledStatement:
		if ret, ok := s.Statement.(*ast.ReturnStatement); ok {
			repl := f(ret, depth)
			switch len(repl) {
			case 0:
				s.Statement = &ast.EmptyStatement{}
			case 1:
				s.Statement = repl[0]
			default:
				s.Statement = ast.NewBlock(repl...)
			}
			return
		}
		rewriteNestedReturns(s.Statement, depth, f)
	}
}

// verify rejects a result that still carries an invoke request.
func verify(c *chain, r *WeavingResult) *diagnostics.DiagnosticError {
	for _, m := range r.Members {
		for _, a := range m.Accessors() {
			if len(ast.Proceeds(m.Bodies[a])) > 0 {
				return diagnostics.NewError(diagnostics.ErrW012, c.qualified, m.Layer,
					"%s %s accessor still contains an invoke request", m.Name, a)
			}
		}
	}
	return nil
}

var fingerprintSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/funvibe/weaver/result"))

// fingerprint identifies the emitted members, so unchanged outputs can be
// recognized across runs.
func fingerprint(r *WeavingResult) uuid.UUID {
	var sb strings.Builder
	sb.WriteString(r.Qualified)
	for _, m := range r.Members {
		fmt.Fprintf(&sb, "|%s %s %s %s %v %v %s", m.Role, m.Name, m.Visibility, m.ReturnType, m.Static, m.Async, m.Interface)
		for _, a := range m.Accessors() {
			sb.WriteString(" " + a.String() + "=" + ast.Dump(m.Bodies[a]))
		}
	}
	sb.WriteString("|" + r.SourceRenamedTo)
	return uuid.NewSHA1(fingerprintSpace, []byte(sb.String()))
}
