package project

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/parser"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/transform"
)

// Project is a decoded model: a sealed compilation and one transformation set
// per declaration.
type Project struct {
	Path        string
	Compilation *symbols.Compilation
	Sets        []*transform.TransformationSet
}

// Set returns the transformation set of the named declaration ("Type.Member").
func (p *Project) Set(qualified string) (*transform.TransformationSet, bool) {
	for _, s := range p.Sets {
		if p.Compilation.QualifiedName(s.Decl.ID) == qualified {
			return s, true
		}
	}
	return nil, false
}

// Load reads and decodes a model file.
func Load(path string) (*Project, []*diagnostics.DiagnosticError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes model content. Malformed YAML is an error; problems with the
// model itself are returned as diagnostics, and the declarations they concern
// are left out of the project.
func Parse(data []byte, path string) (*Project, []*diagnostics.DiagnosticError, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	b := &builder{
		path:   path,
		comp:   symbols.NewCompilation(),
		sets:   make(map[symbols.DeclID]*transform.TransformationSet),
		orders: make(map[string]int),
		layers: make(map[string][]string),
	}
	b.declareTypes(m.Types)
	for _, a := range m.Aspects {
		b.layers[a.Name] = a.Layers
	}
	pending := b.declareMembers(m.Types)
	specs := b.declareIntroductions(m.Transformations)
	b.comp.Seal()

	for _, p := range pending {
		b.parseSource(p)
	}
	for i := range m.Transformations {
		b.addTransformation(&m.Transformations[i], specs[i])
	}

	proj := &Project{Path: path, Compilation: b.comp}
	for _, d := range b.comp.Declarations() {
		if s, ok := b.sets[d.ID]; ok {
			proj.Sets = append(proj.Sets, s)
		}
	}
	return proj, b.diags, nil
}

type builder struct {
	path   string
	comp   *symbols.Compilation
	sets   map[symbols.DeclID]*transform.TransformationSet
	diags  []*diagnostics.DiagnosticError
	orders map[string]int      // Aspect -> default declaration-site order
	layers map[string][]string // Aspect -> declared layer names
}

// pendingMember is a declared member whose bodies still need parsing.
type pendingMember struct {
	id   symbols.DeclID
	spec *MemberSpec
}

func (b *builder) errorf(code diagnostics.ErrorCode, decl, layer string, format string, args ...interface{}) {
	b.diags = append(b.diags, diagnostics.NewError(code, decl, layer, format, args...))
}

// declareTypes adds types so that every base precedes its subtypes.
func (b *builder) declareTypes(specs []TypeSpec) {
	byName := make(map[string]*TypeSpec, len(specs))
	for i := range specs {
		byName[specs[i].Name] = &specs[i]
	}
	var add func(s *TypeSpec, seen map[string]bool) symbols.TypeID
	add = func(s *TypeSpec, seen map[string]bool) symbols.TypeID {
		if t, ok := b.comp.TypeByName(s.Name); ok {
			return t.ID
		}
		if seen[s.Name] {
			b.errorf(diagnostics.ErrM001, b.path, "", "type %s: cyclic base type", s.Name)
			return symbols.NoType
		}
		seen[s.Name] = true
		base := symbols.NoType
		if s.Base != "" {
			bs, ok := byName[s.Base]
			if !ok {
				// Base types outside the model are opaque.
				bs = &TypeSpec{Name: s.Base}
				byName[s.Base] = bs
			}
			base = add(bs, seen)
		}
		t, err := b.comp.AddType(s.Name, base)
		if err != nil {
			b.errorf(diagnostics.ErrM001, b.path, "", "%v", err)
			return symbols.NoType
		}
		t.Interface = s.Interface
		return t.ID
	}
	for i := range specs {
		if specs[i].Name == "" {
			b.errorf(diagnostics.ErrM001, b.path, "", "types[%d]: name is required", i)
			continue
		}
		add(&specs[i], make(map[string]bool))
	}
	for _, s := range specs {
		t, ok := b.comp.TypeByName(s.Name)
		if !ok {
			continue
		}
		for _, name := range s.Interfaces {
			it, ok := b.comp.TypeByName(name)
			if !ok {
				it, _ = b.comp.AddType(name, symbols.NoType)
				it.Interface = true
			}
			t.Interfaces = append(t.Interfaces, it.ID)
		}
	}
}

func (b *builder) declareMembers(specs []TypeSpec) []pendingMember {
	var out []pendingMember
	for ti := range specs {
		t, ok := b.comp.TypeByName(specs[ti].Name)
		if !ok {
			continue
		}
		for mi := range specs[ti].Members {
			spec := &specs[ti].Members[mi]
			d, err := declaration(spec, t.ID)
			if err != nil {
				b.errorf(diagnostics.ErrM001, t.Name+"."+spec.Name, "", "%v", err)
				continue
			}
			id, err := b.comp.AddDeclaration(d)
			if err != nil {
				b.errorf(diagnostics.ErrM001, t.Name+"."+spec.Name, "", "%v", err)
				continue
			}
			out = append(out, pendingMember{id: id, spec: spec})
		}
	}
	return out
}

// declareIntroductions registers introduced members so that bodies parsed
// later can name them. The result is indexed like specs.
func (b *builder) declareIntroductions(specs []TransformationSpec) []symbols.DeclID {
	ids := make([]symbols.DeclID, len(specs))
	for i := range specs {
		in := specs[i].Introduce
		if in == nil {
			continue
		}
		t, ok := b.comp.TypeByName(in.Type)
		if !ok {
			b.errorf(diagnostics.ErrW009, in.Type+"."+in.Member.Name, specs[i].Layer, "introduction into unknown type %s", in.Type)
			continue
		}
		d, err := declaration(&in.Member, t.ID)
		if err == nil {
			d.Introduced = true
			ids[i], err = b.comp.AddDeclaration(d)
		}
		if err != nil {
			b.errorf(diagnostics.ErrM001, in.Type+"."+in.Member.Name, specs[i].Layer, "%v", err)
		}
	}
	return ids
}

func (b *builder) set(id symbols.DeclID) *transform.TransformationSet {
	s, ok := b.sets[id]
	if !ok {
		s = transform.NewSet(b.comp.Declaration(id))
		b.sets[id] = s
	}
	return s
}

func (b *builder) parseSource(p pendingMember) {
	d := b.comp.Declaration(p.id)
	bodies, ok := b.parseBodies(d, p.spec.Bodies, "")
	if !ok || len(bodies) == 0 {
		return
	}
	s := b.set(p.id)
	for a, block := range bodies {
		s.Source[a] = block
	}
}

// parseBodies parses the accessor-keyed bodies of d. It reports false if any
// body or key is invalid.
func (b *builder) parseBodies(d *symbols.Declaration, nodes map[string]yaml.Node, layer string) (map[symbols.AccessorKind]*ast.Block, bool) {
	qualified := b.comp.QualifiedName(d.ID)
	out := make(map[symbols.AccessorKind]*ast.Block, len(nodes))
	ok := true
	keys := make([]string, 0, len(nodes))
	for key := range nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		node := nodes[key]
		a, valid := symbols.ParseAccessor(key)
		if !valid {
			b.errorf(diagnostics.ErrM001, qualified, layer, "unknown key %q", key)
			ok = false
			continue
		}
		if node.Kind != yaml.ScalarNode {
			b.errorf(diagnostics.ErrM001, qualified, layer, "%s: body must be a string", key)
			ok = false
			continue
		}
		offset := node.Line - 1
		if node.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
			offset = node.Line
		}
		block, errs := parser.ParseBody(node.Value,
			parser.WithLookup(b.lookup(d.Type)),
			parser.WithSource(b.path, offset))
		if len(errs) > 0 {
			for _, e := range errs {
				e.Layer = layer
			}
			b.diags = append(b.diags, errs...)
			ok = false
			continue
		}
		out[a] = block
	}
	return out, ok
}

// lookup resolves invoke member names: first the context type and its bases,
// then any type declaring a member of that name.
func (b *builder) lookup(t symbols.TypeID) parser.Lookup {
	return func(name string) (symbols.DeclID, bool) {
		for _, cur := range append([]symbols.TypeID{t}, b.comp.BaseChain(t)...) {
			for _, id := range b.comp.Type(cur).Members {
				if b.comp.Declaration(id).Name == name {
					return id, true
				}
			}
		}
		for _, d := range b.comp.Declarations() {
			if d.Name == name {
				return d.ID, true
			}
		}
		return symbols.NoDecl, false
	}
}

func (b *builder) layer(spec *TransformationSpec) (transform.Layer, bool) {
	aspect, name, _ := strings.Cut(spec.Layer, ":")
	if aspect == "" {
		return transform.Layer{}, false
	}
	l := transform.Layer{Aspect: aspect, Name: name}
	if spec.Order != nil {
		l.Order = *spec.Order
	} else {
		if _, seen := b.orders[aspect]; !seen {
			b.orders[aspect] = len(b.orders)
		}
		l.Order = b.orders[aspect]
	}
	declared, listed := b.layers[aspect]
	if !listed {
		return l, name == ""
	}
	for i, n := range declared {
		if n == name {
			l.Position = i
			return l, true
		}
	}
	return l, false
}

func (b *builder) target(qualified string, layer string) (*symbols.Declaration, bool) {
	d, ok := b.comp.LookupQualified(qualified)
	if !ok {
		b.errorf(diagnostics.ErrW009, qualified, layer, "unknown declaration %s", qualified)
	}
	return d, ok
}

func (b *builder) addTransformation(spec *TransformationSpec, introduced symbols.DeclID) {
	l, ok := b.layer(spec)
	if !ok {
		b.errorf(diagnostics.ErrM001, b.path, spec.Layer, "invalid layer %q", spec.Layer)
		return
	}
	var (
		t    transform.Transformation
		decl *symbols.Declaration
		kind int
	)
	for _, set := range []bool{spec.Override != "", spec.Introduce != nil, spec.Redirect != "", spec.Proxy != ""} {
		if set {
			kind++
		}
	}
	if kind != 1 {
		b.errorf(diagnostics.ErrM001, b.path, l.String(), "a transformation needs exactly one of override, introduce, redirect or proxy")
		return
	}

	switch {
	case spec.Override != "":
		if decl, ok = b.target(spec.Override, l.String()); !ok {
			return
		}
		bodies, ok := b.templates(decl, spec, l)
		if !ok {
			return
		}
		t = &transform.Override{Decl: decl.ID, By: l, Bodies: bodies}

	case spec.Introduce != nil:
		if decl = b.comp.Declaration(introduced); decl == nil {
			return // reported while declaring
		}
		policy, ok := transform.ParsePolicy(spec.Policy)
		if !ok {
			b.errorf(diagnostics.ErrM001, b.comp.QualifiedName(decl.ID), l.String(), "unknown policy %q", spec.Policy)
			return
		}
		bodies, ok := b.templates(decl, spec, l)
		if !ok {
			return
		}
		if len(spec.Introduce.Member.Bodies) > 0 {
			b.errorf(diagnostics.ErrM001, b.comp.QualifiedName(decl.ID), l.String(), "introduced bodies belong on the transformation")
			return
		}
		t = &transform.Introduce{Decl: decl.ID, By: l, Policy: policy, Bodies: bodies}

	case spec.Redirect != "":
		if decl, ok = b.target(spec.Redirect, l.String()); !ok {
			return
		}
		to, ok := b.target(spec.To, l.String())
		if !ok {
			return
		}
		r := &transform.Redirect{Decl: decl.ID, By: l, To: to.ID}
		if spec.Receiver != "" {
			e, errs := parser.ParseExpression(spec.Receiver, parser.WithSource(b.path, 0))
			if len(errs) > 0 {
				b.diags = append(b.diags, errs...)
				return
			}
			r.Receiver = e
		}
		for _, name := range spec.Only {
			a, ok := symbols.ParseAccessor(name)
			if !ok {
				b.errorf(diagnostics.ErrM001, b.comp.QualifiedName(decl.ID), l.String(), "unknown accessor %q", name)
				return
			}
			r.Only = append(r.Only, a)
		}
		t = r

	case spec.Proxy != "":
		if decl, ok = b.target(spec.Proxy, l.String()); !ok {
			return
		}
		if spec.Interface == "" {
			b.errorf(diagnostics.ErrM001, b.comp.QualifiedName(decl.ID), l.String(), "proxy needs an interface")
			return
		}
		t = &transform.ProxyInterfaceMember{Decl: decl.ID, By: l, Interface: spec.Interface, Member: spec.Member}
	}

	if err := b.set(decl.ID).Add(t, b.comp.QualifiedName(decl.ID)); err != nil {
		b.diags = append(b.diags, err)
	}
}

// templates parses the bodies of an override or introduction.
func (b *builder) templates(d *symbols.Declaration, spec *TransformationSpec, l transform.Layer) (map[symbols.AccessorKind]*transform.Body, bool) {
	reported := len(b.diags)
	blocks, ok := b.parseBodies(d, spec.Bodies, l.String())
	if !ok {
		if parseFailed(b.diags[reported:]) {
			b.diags = append(b.diags, diagnostics.NewWarning(diagnostics.ErrW005, b.comp.QualifiedName(d.ID), l.String(),
				"transformation dropped: its template does not parse"))
		}
		return nil, false
	}
	if len(blocks) == 0 {
		b.errorf(diagnostics.ErrM001, b.comp.QualifiedName(d.ID), l.String(), "transformation has no body")
		return nil, false
	}
	out := make(map[symbols.AccessorKind]*transform.Body, len(blocks))
	for a, block := range blocks {
		out[a] = &transform.Body{Block: block}
	}
	return out, true
}

// parseFailed reports whether diags hold a body parse error.
func parseFailed(diags []*diagnostics.DiagnosticError) bool {
	for _, d := range diags {
		switch d.Code {
		case diagnostics.ErrP001, diagnostics.ErrP002, diagnostics.ErrP003, diagnostics.ErrP004:
			return true
		}
	}
	return false
}
