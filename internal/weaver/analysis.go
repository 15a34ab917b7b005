package weaver

import (
	"go.uber.org/zap"

	"github.com/funvibe/weaver/internal/adapter"
	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/invoker"
	"github.com/funvibe/weaver/internal/symbols"
)

type posKind int

const (
	posOther     posKind = iota
	posReturn            // return p;
	posStatement         // p;
	posDiscard           // _ = p;
	posDeclare           // var x = p;
	posAssign            // x = p;
)

// position is where a request sits in its body. Only the statement forms
// above can be replaced by a splice.
type position struct {
	kind    posKind
	awaited bool
	name    string         // Declared local, posDeclare
	target  ast.Expression // Assigned variable, posAssign
}

func (p position) discarded() bool {
	return p.kind == posStatement || p.kind == posDiscard
}

// positionOf recognizes a statement that consists of one request.
func positionOf(s ast.Statement) (*ast.ProceedExpression, position) {
	unwrap := func(e ast.Expression) (*ast.ProceedExpression, bool) {
		if aw, ok := e.(*ast.AwaitExpression); ok {
			pe, ok := aw.Value.(*ast.ProceedExpression)
			return pe, ok
		}
		pe, _ := e.(*ast.ProceedExpression)
		return pe, false
	}
	switch s := s.(type) {
	case *ast.ReturnStatement:
		if pe, aw := unwrap(s.Value); pe != nil {
			return pe, position{kind: posReturn, awaited: aw}
		}
	case *ast.LocalDeclaration:
		if pe, aw := unwrap(s.Value); pe != nil && s.Name != config.DiscardName {
			return pe, position{kind: posDeclare, awaited: aw, name: s.Name}
		}
	case *ast.ExpressionStatement:
		if as, ok := s.Expression.(*ast.Assignment); ok && as.Operator == "=" {
			id, isIdent := as.Target.(*ast.Identifier)
			pe, aw := unwrap(as.Value)
			if pe == nil || !isIdent {
				return nil, position{}
			}
			if id.Name == config.DiscardName {
				return pe, position{kind: posDiscard, awaited: aw}
			}
			return pe, position{kind: posAssign, awaited: aw, target: id}
		}
		if pe, aw := unwrap(s.Expression); pe != nil {
			return pe, position{kind: posStatement, awaited: aw}
		}
	}
	return nil, position{}
}

func positions(b *ast.Block) map[*ast.ProceedExpression]position {
	out := make(map[*ast.ProceedExpression]position)
	var walk func(s ast.Statement)
	walk = func(s ast.Statement) {
		if pe, pos := positionOf(s); pe != nil {
			out[pe] = pos
		}
		switch s := s.(type) {
		case *ast.Block:
			for _, st := range s.Statements {
				walk(st)
			}
		case *ast.IfStatement:
			walk(s.Then)
			if s.Else != nil {
				walk(s.Else)
			}
		case *ast.WhileStatement:
			walk(s.Body)
		case *ast.ForEachStatement:
			walk(s.Body)
		case *ast.LabeledStatement:
			walk(s.Statement)
		}
	}
	walk(b)
	return out
}

// request is one resolved invoke request.
type request struct {
	expr     *ast.ProceedExpression
	chain    *chain
	link     int
	accessor symbols.AccessorKind
	target   invoker.Target
	pos      position
	glue     adapter.Glue
	inline   bool // Replaced by the callee's spliced body
}

type refKey struct {
	decl     symbols.DeclID
	index    int
	accessor symbols.AccessorKind
}

// analyze resolves every request of the compilation, then decides shapes,
// reachability, inlining and names. It runs before any emission.
func (p *pass) analyze() {
	for _, c := range p.chains {
		if c.active() {
			p.prepare(c)
		}
	}
	// A skipped declaration keeps its original member, which changes what
	// requests from other declarations bind to.
	for changed := true; changed; {
		changed = false
		for _, c := range p.chains {
			if c.active() && !p.resolve(c) {
				changed = true
			}
		}
	}
	for _, c := range p.chains {
		if c.active() {
			p.shapes(c)
		}
	}
	p.reach()
	p.decideInlining()
	p.name()
}

// prepare makes a template that never proceeds still run its inner chain
// once, unless that is switched off.
func (p *pass) prepare(c *chain) {
	if !p.cfg.ProceedRequired() {
		return
	}
	for _, l := range c.links {
		if l.kind != linkTemplate {
			continue
		}
		for _, a := range l.accessors() {
			b := l.bodies[a]
			if b.kind != bodyTemplate || proceedsInward(b.block, c.decl.ID) {
				continue
			}
			req := &ast.ProceedExpression{Accessor: a}
			var s ast.Statement = ast.ExprStmt(req)
			if c.decl.ReturnsValue(a) {
				s = ast.Discard(req)
			}
			b.block.Statements = append([]ast.Statement{s}, b.block.Statements...)
		}
	}
}

func proceedsInward(b *ast.Block, self symbols.DeclID) bool {
	for _, pe := range ast.Proceeds(b) {
		own := pe.Member == symbols.NoDecl || pe.Member == self
		if own && pe.ImplicitReceiver() && (pe.Semantics == ast.SemanticsDefault || pe.Semantics == ast.SemanticsBase) {
			return true
		}
	}
	return false
}

// resolve binds the requests of c. It reports false when c had to be
// skipped.
func (p *pass) resolve(c *chain) bool {
	c.reqs = make(map[*ast.ProceedExpression]*request)
	var errs []*diagnostics.DiagnosticError
	for i, l := range c.links {
		for _, a := range l.accessors() {
			b := l.bodies[a]
			pos := positions(b.block)
			ctx := invoker.Context{
				Decl:      c.decl.ID,
				Accessor:  a,
				Layer:     l.contextLayer(),
				Qualified: c.qualified,
				Bottom:    l.bottom(),
			}
			for _, pe := range ast.Proceeds(b.block) {
				t, err := p.resolver.Resolve(ctx, pe)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				c.reqs[pe] = &request{expr: pe, chain: c, link: i, accessor: a, target: t, pos: pos[pe]}
			}
		}
	}
	if !diagnostics.HasErrors(errs) {
		return true
	}
	for _, e := range errs {
		c.fail(e)
	}
	return false
}

// requestsOf returns the requests of one body in source order.
func (c *chain) requestsOf(b *linkBody) []*request {
	var out []*request
	for _, pe := range ast.Proceeds(b.block) {
		if r := c.reqs[pe]; r != nil {
			out = append(out, r)
		}
	}
	return out
}

// calleeShape is the shape a caller observes when reaching t from link i of
// c. Inner links of the same chain are known precisely; everything else is
// seen through its declaration.
func (p *pass) calleeShape(c *chain, i int, t invoker.Target) symbols.Shape {
	if t.Kind == invoker.TargetNone || t.Accessor != symbols.AccessorBody {
		return symbols.ShapeValue
	}
	if t.Kind == invoker.TargetLink && t.Decl == c.decl.ID && t.Index > i && t.Index < len(c.links) {
		if b := c.links[t.Index].bodies[t.Accessor]; b != nil {
			return b.effective
		}
	}
	if d := p.comp.Declaration(t.Decl); d != nil {
		return d.Shape
	}
	return symbols.ShapeValue
}

// shapes plans the glue of every request and the effective shape of every
// link body, innermost link first.
func (p *pass) shapes(c *chain) {
	d := c.decl
	for i := len(c.links) - 1; i >= 0; i-- {
		l := c.links[i]
		if l.kind == linkPartial {
			continue
		}
		for _, a := range l.accessors() {
			b := l.bodies[a]
			caller := d.Shape
			if a != symbols.AccessorBody {
				caller = symbols.ShapeValue
			}
			yields := ast.ContainsYield(b.block)
			awaits := ast.ContainsAwait(b.block)
			lazy := false
			for _, r := range c.requestsOf(b) {
				callee := p.calleeShape(c, i, r.target)
				r.glue = adapter.Plan(adapter.Boundary{
					Kind:         r.expr.Kind,
					Callee:       callee,
					Caller:       caller,
					CallerYields: yields,
					Discarded:    r.pos.discarded(),
				})
				if r.glue.MarksAsync() {
					awaits = true
				}
				if r.pos.kind == posReturn && r.expr.Kind == ast.ProceedEnumerable && callee == symbols.ShapeIterator {
					lazy = true
				}
			}
			switch {
			case a != symbols.AccessorBody:
				b.effective = symbols.ShapeValue
			case caller == symbols.ShapeIterator && !yields && !lazy:
				b.effective = symbols.ShapeValue
			default:
				b.effective = caller
			}
			b.streams = caller == symbols.ShapeAsyncIterator && !yields && awaits
		}
	}
}

// reach marks the links that some reachable body invokes, starting from the
// public members. Links nothing reaches are dropped with a warning.
func (p *pass) reach() {
	type item struct {
		c *chain
		i int
	}
	var work []item
	mark := func(c *chain, i int) {
		if i < len(c.links) && !c.links[i].reachable {
			c.links[i].reachable = true
			work = append(work, item{c, i})
		}
	}
	for _, c := range p.chains {
		if c.active() && len(c.links) > 0 {
			mark(c, 0)
		}
	}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]
		for _, a := range it.c.links[it.i].accessors() {
			for _, r := range it.c.requestsOf(it.c.links[it.i].bodies[a]) {
				if r.target.Kind != invoker.TargetLink {
					continue
				}
				if tc := p.byDecl[r.target.Decl]; tc != nil && tc.active() {
					mark(tc, r.target.Index)
				}
			}
		}
	}
	for _, c := range p.chains {
		if !c.active() {
			continue
		}
		for _, l := range c.links {
			if !l.reachable {
				c.fail(diagnostics.NewWarning(diagnostics.ErrW010, c.qualified, l.label(),
					"link is unreachable from %s and was dropped", c.name))
			}
		}
	}
}

func (p *pass) decideInlining() {
	refs := make(map[refKey][]*request)
	for _, c := range p.chains {
		if !c.active() {
			continue
		}
		for _, l := range c.links {
			if !l.reachable {
				continue
			}
			for _, a := range l.accessors() {
				for _, r := range c.requestsOf(l.bodies[a]) {
					if r.target.Kind == invoker.TargetLink {
						k := refKey{r.target.Decl, r.target.Index, r.target.Accessor}
						refs[k] = append(refs[k], r)
					}
				}
			}
		}
	}
	if !p.cfg.InliningEnabled() {
		return
	}
	for _, c := range p.chains {
		if !c.active() {
			continue
		}
		for j := 1; j < len(c.links); j++ {
			l := c.links[j]
			if !l.reachable || l.kind == linkPartial {
				continue
			}
			var callers []*request
			for _, a := range l.accessors() {
				rs := refs[refKey{c.decl.ID, j, a}]
				if len(rs) != 1 || !p.inlinable(c, j, a, rs[0]) {
					callers = nil
					break
				}
				callers = append(callers, rs[0])
			}
			if len(callers) == 0 {
				continue
			}
			l.inline = true
			for _, r := range callers {
				r.inline = true
			}
			p.log.Debug("inlined link", zap.String("declaration", c.qualified), zap.String("link", l.label()))
		}
	}
}

// inlinable reports whether link j's accessor a can be spliced into the
// statement of its only caller r.
func (p *pass) inlinable(c *chain, j int, a symbols.AccessorKind, r *request) bool {
	if r.chain != c || r.link != j-1 || r.accessor != a || r.target.Explicit {
		return false
	}
	if !invoker.Forwards(r.expr, c.decl, a) {
		return false
	}
	if r.glue != adapter.GlueNone && r.glue != adapter.GlueAwait {
		return false
	}
	switch r.expr.Kind {
	case ast.ProceedDefault:
		if r.pos.awaited {
			return false
		}
	case ast.ProceedAsync:
		if !r.pos.awaited {
			return false
		}
	default:
		return false
	}
	switch r.pos.kind {
	case posOther:
		return false
	case posDeclare, posAssign:
		if c.decl.ValueType(a) == "" || !c.decl.ReturnsValue(a) {
			return false
		}
	}
	b := c.links[j].bodies[a]
	if b == nil || b.streams || ast.ContainsYield(b.block) {
		return false
	}
	if c.decl.Shape != symbols.ShapeAsync && p.awaits(c, b) {
		return false
	}
	return true
}

func (p *pass) awaits(c *chain, b *linkBody) bool {
	if ast.ContainsAwait(b.block) {
		return true
	}
	for _, r := range c.requestsOf(b) {
		if r.glue.MarksAsync() {
			return true
		}
	}
	return false
}

// name gives every emitted link its member name. Chains are named in
// declaration order so names are stable across runs.
func (p *pass) name() {
	for _, c := range p.chains {
		if !c.active() {
			continue
		}
		for j, l := range c.links {
			if !l.reachable || l.inline {
				continue
			}
			if j == 0 {
				l.name = c.name
				continue
			}
			var base string
			switch l.kind {
			case linkTemplate:
				base = c.name + config.NameSeparator + layerSuffix(l.layer)
			case linkIntroduced:
				base = c.name + config.NameSeparator + config.IntroducedInfix + config.NameSeparator + l.layer.ShortAspect()
			default:
				base = c.name + config.NameSeparator + config.SourceSuffix
			}
			l.name = p.reserve(c.decl.Type, base)
		}
	}
}

// Namer, as seen by the invoker.

func (p *pass) MemberName(decl symbols.DeclID) string {
	if c := p.byDecl[decl]; c != nil && !c.dropped {
		return c.name
	}
	if d := p.comp.Declaration(decl); d != nil {
		return d.Name
	}
	return ""
}

func (p *pass) LinkName(decl symbols.DeclID, index int) string {
	c := p.byDecl[decl]
	if index == 0 || c == nil || !c.active() || index >= len(c.links) || c.links[index].name == "" {
		return p.MemberName(decl)
	}
	return c.links[index].name
}
