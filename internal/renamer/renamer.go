// Package renamer makes the locals and labels of a merged body unique once
// inlined links have been spliced into it.
//
// Spliced regions are hygienic: a name inside a splice only binds to locals of
// the same splice unless the reference was lifted (Identifier.Up) from an
// enclosing link. After Rename no binding shares a name with another binding
// whose scope encloses or is enclosed by its own, all Up counts are zero, and
// the body can be read with ordinary scoping. Bindings of the implementation
// link claim their names first, so aspect locals are the ones that move.
package renamer

import (
	"fmt"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/config"
)

type binding struct {
	name    string
	renamed string
	scope   *scope
	source  bool
}

type scope struct {
	names    map[string]*binding
	parent   *scope
	boundary bool // root scope of a splice
	source   bool // inside a splice of the implementation link
}

// within reports whether s is inner or equal to outer.
func (s *scope) within(outer *scope) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur == outer {
			return true
		}
	}
	return false
}

func related(a, b *scope) bool {
	return a.within(b) || b.within(a)
}

type pendingGoto struct {
	stmt    *ast.GotoStatement
	regions []map[string]*binding
}

type walker struct {
	scopes   []*scope
	regions  []map[string]*binding // label namespaces: method root, then one per splice
	params   map[string]bool
	free     map[string][]*scope // free name to the scopes using it
	bindings []*binding
	labels   []*binding
	uses     map[*ast.Identifier]*binding
	locals   map[*ast.LocalDeclaration]*binding
	loops    map[*ast.ForEachStatement]*binding
	marks    map[*ast.LabeledStatement]*binding
	gotos    []pendingGoto
}

// Rename disambiguates body in place. params are the method's parameter
// names (including the implicit value of setters); they are never renamed.
// A name used free in a scope is reserved for the bindings enclosing that use.
func Rename(body *ast.Block, params []string) {
	if body == nil {
		return
	}
	w := &walker{
		params:  make(map[string]bool),
		free:    make(map[string][]*scope),
		uses:    make(map[*ast.Identifier]*binding),
		locals:  make(map[*ast.LocalDeclaration]*binding),
		loops:   make(map[*ast.ForEachStatement]*binding),
		marks:   make(map[*ast.LabeledStatement]*binding),
		regions: []map[string]*binding{{}},
	}
	for _, p := range params {
		w.params[p] = true
	}
	w.block(body)

	w.assign(w.bindings)
	labels := make(map[string]bool)
	for _, b := range claimOrder(w.labels) {
		b.renamed = next(b.name, func(name string) bool { return labels[name] })
		labels[b.renamed] = true
	}

	for id, b := range w.uses {
		id.Name = b.renamed
	}
	ast.Inspect(body, func(n ast.Node) bool {
		if id, ok := n.(*ast.Identifier); ok {
			id.Up = 0
		}
		return true
	})
	for s, b := range w.locals {
		s.Name = b.renamed
	}
	for s, b := range w.loops {
		s.Name = b.renamed
	}
	for s, b := range w.marks {
		s.Label = b.renamed
	}
	for _, g := range w.gotos {
		if i := len(g.regions) - 1 - g.stmt.Up; i >= 0 {
			if b, ok := g.regions[i][g.stmt.Label]; ok {
				g.stmt.Label = b.renamed
			}
		}
		g.stmt.Up = 0
	}
}

// claimOrder lists implementation bindings first, each group in declaration
// order.
func claimOrder(bindings []*binding) []*binding {
	out := make([]*binding, 0, len(bindings))
	for _, b := range bindings {
		if b.source {
			out = append(out, b)
		}
	}
	for _, b := range bindings {
		if !b.source {
			out = append(out, b)
		}
	}
	return out
}

// next returns name or the smallest name_k that is not taken.
func next(name string, taken func(string) bool) string {
	candidate := name
	for k := 1; taken(candidate); k++ {
		candidate = fmt.Sprintf("%s%s%d", name, config.NameSeparator, k)
	}
	return candidate
}

// assign gives every binding its own name unless that would clash with a
// parameter, with a free name used inside its scope, or with an already named
// binding in a nested or enclosing scope. Bindings in sibling scopes may share
// a name.
func (w *walker) assign(bindings []*binding) {
	named := make(map[string][]*binding)
	for _, b := range claimOrder(bindings) {
		b.renamed = next(b.name, func(name string) bool {
			if w.params[name] {
				return true
			}
			for _, s := range w.free[name] {
				if s.within(b.scope) {
					return true
				}
			}
			for _, other := range named[name] {
				if related(other.scope, b.scope) {
					return true
				}
			}
			return false
		})
		named[b.renamed] = append(named[b.renamed], b)
	}
}

func (w *walker) push(splice *ast.Splice) {
	s := &scope{names: make(map[string]*binding), boundary: splice != nil}
	if n := len(w.scopes); n > 0 {
		s.parent = w.scopes[n-1]
		s.source = s.parent.source
	}
	if splice != nil {
		s.source = splice.Origin == config.SourceOrigin
	}
	w.scopes = append(w.scopes, s)
}

func (w *walker) pop() {
	w.scopes = w.scopes[:len(w.scopes)-1]
}

func (w *walker) current() *scope {
	return w.scopes[len(w.scopes)-1]
}

func (w *walker) declare(name string) *binding {
	cur := w.current()
	b := &binding{name: name, scope: cur, source: cur.source}
	cur.names[name] = b
	w.bindings = append(w.bindings, b)
	return b
}

func (w *walker) lookup(name string, up int) *binding {
	i := len(w.scopes) - 1
	for ; up > 0 && i >= 0; i-- {
		if w.scopes[i].boundary {
			up--
		}
	}
	for ; i >= 0; i-- {
		if b, ok := w.scopes[i].names[name]; ok {
			return b
		}
		if w.scopes[i].boundary {
			break
		}
	}
	return nil
}

func (w *walker) block(b *ast.Block) {
	if b == nil {
		return
	}
	w.push(b.Splice)
	if b.Splice != nil {
		w.regions = append(w.regions, map[string]*binding{})
	}
	for _, s := range b.Statements {
		w.statement(s)
	}
	if b.Splice != nil {
		w.regions = w.regions[:len(w.regions)-1]
	}
	w.pop()
}

func (w *walker) statement(s ast.Statement) {
	switch s := s.(type) {
	case *ast.Block:
		w.block(s)
	case *ast.LocalDeclaration:
		w.expression(s.Value)
		if s.Name != config.DiscardName {
			w.locals[s] = w.declare(s.Name)
		}
	case *ast.ExpressionStatement:
		w.expression(s.Expression)
	case *ast.ReturnStatement:
		w.expression(s.Value)
	case *ast.IfStatement:
		w.expression(s.Condition)
		w.block(s.Then)
		w.block(s.Else)
	case *ast.WhileStatement:
		w.expression(s.Condition)
		w.block(s.Body)
	case *ast.ForEachStatement:
		w.expression(s.Collection)
		w.push(nil)
		if s.Name != config.DiscardName {
			w.loops[s] = w.declare(s.Name)
		}
		w.block(s.Body)
		w.pop()
	case *ast.LabeledStatement:
		b := &binding{name: s.Label, scope: w.current(), source: w.current().source}
		w.regions[len(w.regions)-1][s.Label] = b
		w.labels = append(w.labels, b)
		w.marks[s] = b
		w.statement(s.Statement)
	case *ast.GotoStatement:
		w.gotos = append(w.gotos, pendingGoto{stmt: s, regions: append([]map[string]*binding(nil), w.regions...)})
	case *ast.YieldReturnStatement:
		w.expression(s.Value)
	}
}

func (w *walker) expression(e ast.Expression) {
	ast.Inspect(e, func(n ast.Node) bool {
		id, ok := n.(*ast.Identifier)
		if !ok || id.Name == config.DiscardName {
			return true
		}
		if b := w.lookup(id.Name, id.Up); b != nil {
			w.uses[id] = b
		} else if !w.params[id.Name] {
			w.free[id.Name] = append(w.free[id.Name], w.current())
		}
		return true
	})
}
