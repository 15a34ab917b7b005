package weaver

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/invoker"
	"github.com/funvibe/weaver/internal/ordering"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/transform"
)

type linkKind int

const (
	linkTemplate    linkKind = iota // A layer's link: template, passthrough or redirect bodies
	linkSource                      // The original bodies
	linkSynthesized                 // Accessors over the backing field of an auto member
	linkIntroduced                  // Bodies of an introduction
	linkPartial                     // Implementation lives in another compilation unit
)

type bodyKind int

const (
	bodyTemplate bodyKind = iota
	bodyPassthrough
	bodyRedirect
	bodySource
)

// linkBody is the body of one accessor of a link. block is a private copy
// that emission consumes.
type linkBody struct {
	kind      bodyKind
	block     *ast.Block
	effective symbols.Shape // Shape callers observe
	streams   bool          // Needs its returns turned into a yield loop
}

type link struct {
	kind      linkKind
	layer     transform.Layer // Zero for source, synthesized and partial links
	bodies    map[symbols.AccessorKind]*linkBody
	name      string
	reachable bool
	inline    bool
}

func (l *link) bottom() bool { return l.kind != linkTemplate }

// accessors returns the link's accessors in canonical order.
func (l *link) accessors() []symbols.AccessorKind {
	var out []symbols.AccessorKind
	for _, a := range []symbols.AccessorKind{symbols.AccessorBody, symbols.AccessorGet, symbols.AccessorSet, symbols.AccessorAdd, symbols.AccessorRemove} {
		if _, ok := l.bodies[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (l *link) contextLayer() transform.LayerID {
	if l.kind == linkTemplate || l.kind == linkIntroduced {
		return l.layer.ID()
	}
	return ""
}

func (l *link) label() string {
	if l.kind == linkTemplate || l.kind == linkIntroduced {
		return l.layer.String()
	}
	return config.SourceOrigin
}

// chain is the planned weaving of one declaration.
type chain struct {
	set       *transform.TransformationSet
	decl      *symbols.Declaration
	qualified string
	name      string // Public member name
	extra     []transform.Transformation
	intro     *transform.Introduce

	order     []transform.Layer // Layers owning a link, outermost first
	links     []*link
	inherited symbols.DeclID
	backing   string

	diags   []*diagnostics.DiagnosticError
	skipped bool
	dropped bool
	reqs    map[*ast.ProceedExpression]*request
}

func (c *chain) active() bool {
	return !c.skipped && !c.dropped && (c.set.Len() > 0 || len(c.extra) > 0)
}

func (c *chain) fail(d *diagnostics.DiagnosticError) {
	c.diags = append(c.diags, d)
	if d.IsError() {
		c.skipped = true
	}
}

func (c *chain) bottomLink() *link {
	if n := len(c.links); n > len(c.order) {
		return c.links[n-1]
	}
	return nil
}

// pass is one weaving run. Everything but the emitted bodies is written
// before emission starts.
type pass struct {
	s        *Session
	comp     *symbols.Compilation
	cfg      *config.Config
	log      *zap.Logger
	orderer  *ordering.Orderer
	cache    *ordering.Cache
	resolver *invoker.Resolver

	chains      []*chain
	byDecl      map[symbols.DeclID]*chain
	taken       map[symbols.TypeID]map[string]bool
	globalDiags []*diagnostics.DiagnosticError
}

func newPass(s *Session, sets []*transform.TransformationSet) *pass {
	p := &pass{
		s:      s,
		comp:   s.comp,
		cfg:    s.cfg,
		log:    s.logger,
		byDecl: make(map[symbols.DeclID]*chain),
		taken:  make(map[symbols.TypeID]map[string]bool),
	}
	p.orderer = s.Orderer(sets)
	p.cache = ordering.NewCache(p.orderer)
	p.resolver = invoker.NewResolver(p.comp, p)

	sorted := append([]*transform.TransformationSet(nil), sets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Decl.ID < sorted[j].Decl.ID })
	for _, set := range sorted {
		if _, dup := p.byDecl[set.Decl.ID]; dup {
			p.globalDiags = append(p.globalDiags, diagnostics.NewError(diagnostics.ErrW009,
				p.comp.QualifiedName(set.Decl.ID), "", "declaration has more than one transformation set; the later one is ignored"))
			continue
		}
		c := &chain{
			set:       set,
			decl:      set.Decl,
			qualified: p.comp.QualifiedName(set.Decl.ID),
			name:      set.Decl.Name,
			reqs:      make(map[*ast.ProceedExpression]*request),
		}
		p.chains = append(p.chains, c)
		p.byDecl[c.decl.ID] = c
	}
	return p
}

// Chains, as seen by the invoker.

func (p *pass) Layers(decl symbols.DeclID) []transform.LayerID {
	c := p.byDecl[decl]
	if c == nil || !c.active() {
		return nil
	}
	ids := make([]transform.LayerID, len(c.order))
	for i, l := range c.order {
		ids[i] = l.ID()
	}
	return ids
}

func (p *pass) HasSource(decl symbols.DeclID) bool {
	c := p.byDecl[decl]
	if c == nil || !c.active() {
		return true
	}
	return c.bottomLink() != nil
}

func (p *pass) Inherited(decl symbols.DeclID) symbols.DeclID {
	if c := p.byDecl[decl]; c != nil {
		return c.inherited
	}
	return symbols.NoDecl
}

func (p *pass) Rank(layer transform.LayerID) int { return p.orderer.Rank(layer) }

// plan resolves introductions and lays out the links of every chain.
func (p *pass) plan() {
	p.resolveIntroductions()
	for _, c := range p.chains {
		if c.active() {
			p.layout(c)
		}
	}
}

func (p *pass) memberNames(t symbols.TypeID) map[string]bool {
	names, ok := p.taken[t]
	if !ok {
		names = p.comp.MemberNames(t)
		p.taken[t] = names
	}
	return names
}

// reserve returns base, or base_k for the smallest k that is free in t, and
// marks the result as taken.
func (p *pass) reserve(t symbols.TypeID, base string) string {
	names := p.memberNames(t)
	name := base
	for k := 1; names[name]; k++ {
		name = base + config.NameSeparator + strconv.Itoa(k)
	}
	names[name] = true
	return name
}

func (p *pass) policy(in *transform.Introduce) transform.IntroducePolicy {
	if in.Policy != transform.PolicyDefault {
		return in.Policy
	}
	pol, _ := transform.ParsePolicy(p.cfg.Introduce.DefaultPolicy)
	if pol == transform.PolicyDefault {
		return transform.PolicyFail
	}
	return pol
}

// resolveIntroductions applies the conflict policy to introduced members
// that collide with a member of the same signature in the same type. Inner
// introductions are applied first, so outer ones are the ones in conflict.
func (p *pass) resolveIntroductions() {
	type group struct {
		typ   symbols.TypeID
		sig   string
		items []*chain
	}
	groups := make(map[string]*group)
	var keys []string
	for _, c := range p.chains {
		in, ok := c.set.Introduction()
		if !ok {
			if c.decl.Introduced && c.set.Len() > 0 {
				c.fail(diagnostics.NewError(diagnostics.ErrW009, c.qualified, "",
					"introduced declaration has no introduction"))
			}
			continue
		}
		c.intro = in
		if !c.decl.Introduced {
			c.fail(diagnostics.NewError(diagnostics.ErrW009, c.qualified, in.By.String(),
				"introduction targets a declaration that already exists in source"))
			continue
		}
		key := strconv.Itoa(int(c.decl.Type)) + "|" + c.decl.Signature()
		g, ok := groups[key]
		if !ok {
			g = &group{typ: c.decl.Type, sig: c.decl.Signature()}
			groups[key] = g
			keys = append(keys, key)
		}
		g.items = append(g.items, c)
	}
	sort.Strings(keys)

	for _, key := range keys {
		g := groups[key]
		sort.SliceStable(g.items, func(i, j int) bool {
			ri, rj := p.orderer.Rank(g.items[i].intro.By.ID()), p.orderer.Rank(g.items[j].intro.By.ID())
			if ri != rj {
				return ri > rj
			}
			return g.items[i].decl.ID < g.items[j].decl.ID
		})
		occupant := symbols.NoDecl
		if t := p.comp.Type(g.typ); t != nil {
			for _, id := range t.Members {
				if d := p.comp.Declaration(id); !d.Introduced && d.Signature() == g.sig {
					occupant = id
					break
				}
			}
		}
		renamed := 0
		for _, c := range g.items {
			if occupant == symbols.NoDecl {
				occupant = c.decl.ID
				continue
			}
			if c.skipped {
				continue
			}
			other := p.comp.QualifiedName(occupant)
			layer := c.intro.By.String()
			switch p.policy(c.intro) {
			case transform.PolicyIgnore:
				c.dropped = true
				p.log.Debug("introduction ignored", zap.String("declaration", c.qualified), zap.String("layer", layer))
			case transform.PolicyOverride:
				target := p.byDecl[occupant]
				if target == nil || (target.decl.Kind != c.decl.Kind) {
					c.fail(diagnostics.NewError(diagnostics.ErrW006, c.qualified, layer,
						"cannot override %s: it has no transformable implementation", other))
					continue
				}
				ov := &transform.Override{Decl: occupant, By: c.intro.By, Bodies: c.intro.Bodies}
				if d := target.addExtra(ov); d != nil {
					c.fail(d)
					continue
				}
				c.dropped = true
				p.log.Debug("introduction merged as override", zap.String("declaration", c.qualified), zap.String("into", other))
			case transform.PolicyNew:
				renamed++
				base := c.decl.Name + config.NameSeparator + strconv.Itoa(renamed)
				if p.cfg.Introduce.NewNames == config.NewNamesLayer {
					base = c.decl.Name + config.NameSeparator + layerSuffix(c.intro.By)
				}
				c.name = p.reserve(c.decl.Type, base)
			default:
				c.fail(diagnostics.NewError(diagnostics.ErrW006, c.qualified, layer,
					"introduced member conflicts with %s", other))
			}
		}
	}
}

// addExtra records a transformation that did not come with the set, with the
// same slot rules as TransformationSet.Add.
func (c *chain) addExtra(t transform.Transformation) *diagnostics.DiagnosticError {
	for _, a := range t.Accessors() {
		if !c.decl.HasAccessor(a) {
			return diagnostics.NewError(diagnostics.ErrW004, c.qualified, t.Layer().String(),
				"%s template for the %s accessor, but the %s declares no such accessor", t.Kind(), a, c.decl.Kind)
		}
		if _, taken := c.at(t.Layer().ID(), a); taken {
			return diagnostics.NewError(diagnostics.ErrW008, c.qualified, t.Layer().String(),
				"%s transformation for the %s accessor conflicts with an earlier one from the same layer", t.Kind(), a)
		}
	}
	c.extra = append(c.extra, t)
	return nil
}

func (c *chain) at(layer transform.LayerID, a symbols.AccessorKind) (transform.Transformation, bool) {
	if t, ok := c.set.At(layer, a); ok {
		return t, true
	}
	for _, t := range c.extra {
		if t.Layer().ID() != layer {
			continue
		}
		if r, ok := t.(*transform.Redirect); ok && r.Covers(a) {
			return t, true
		}
		for _, k := range t.Accessors() {
			if k == a {
				return t, true
			}
		}
	}
	return nil, false
}

func (c *chain) transformations() []transform.Transformation {
	return append(c.set.All(), c.extra...)
}

// layout orders the layers of c and creates its links.
func (p *pass) layout(c *chain) {
	var layers []transform.Layer
	seen := make(map[transform.LayerID]bool)
	for _, t := range c.transformations() {
		switch t.(type) {
		case *transform.Override, *transform.Redirect:
		default:
			continue
		}
		if l := t.Layer(); !seen[l.ID()] {
			seen[l.ID()] = true
			layers = append(layers, l)
		}
	}
	all := layers
	if c.intro != nil && !seen[c.intro.By.ID()] {
		all = append(append([]transform.Layer(nil), layers...), c.intro.By)
	}
	ordered, err := p.cache.Order(all)
	if err != nil {
		c.fail(diagnostics.NewError(diagnostics.ErrW001, c.qualified, "", "%v", err))
		return
	}
	if c.intro != nil {
		introRank := p.orderer.Rank(c.intro.By.ID())
		for _, l := range layers {
			if p.orderer.Rank(l.ID()) > introRank {
				c.fail(diagnostics.NewError(diagnostics.ErrW007, c.qualified, l.String(),
					"layer is inner to %s, which introduces the member", c.intro.By))
			}
		}
		if c.skipped {
			return
		}
	}
	for _, l := range ordered {
		if seen[l.ID()] {
			c.order = append(c.order, l)
		}
	}

	d := c.decl
	for _, l := range c.order {
		lk := &link{kind: linkTemplate, layer: l, bodies: make(map[symbols.AccessorKind]*linkBody)}
		for _, a := range d.AccessorKinds() {
			lk.bodies[a] = p.layerBody(c, l, a)
		}
		c.links = append(c.links, lk)
	}

	c.inherited = p.comp.LookupInherited(d)
	if b := p.bottom(c); b != nil {
		c.links = append(c.links, b)
	}
}

func (p *pass) layerBody(c *chain, l transform.Layer, a symbols.AccessorKind) *linkBody {
	t, ok := c.at(l.ID(), a)
	if !ok {
		return p.passthrough(c, a)
	}
	switch t := t.(type) {
	case *transform.Override:
		if b := t.Bodies[a]; b != nil && b.Block != nil {
			return &linkBody{kind: bodyTemplate, block: ast.CloneBlock(b.Block)}
		}
	case *transform.Redirect:
		return p.redirect(c, t, a)
	}
	return p.passthrough(c, a)
}

// bottom creates the innermost link, or nil when the chain ends in the base
// member or in nothing.
func (p *pass) bottom(c *chain) *link {
	d := c.decl
	switch {
	case c.intro != nil && len(c.intro.Bodies) > 0:
		lk := &link{kind: linkIntroduced, layer: c.intro.By, bodies: make(map[symbols.AccessorKind]*linkBody)}
		for _, a := range d.AccessorKinds() {
			if b := c.intro.Bodies[a]; b != nil && b.Block != nil {
				lk.bodies[a] = &linkBody{kind: bodyTemplate, block: ast.CloneBlock(b.Block)}
			} else {
				lk.bodies[a] = p.passthrough(c, a)
			}
		}
		return lk
	case d.Partial:
		return &link{kind: linkPartial}
	case d.Auto:
		c.backing = p.reserve(d.Type, backingName(c.name))
		lk := &link{kind: linkSynthesized, bodies: make(map[symbols.AccessorKind]*linkBody)}
		for _, a := range d.AccessorKinds() {
			lk.bodies[a] = p.synthesize(c, a)
		}
		return lk
	case len(c.set.Source) > 0:
		lk := &link{kind: linkSource, bodies: make(map[symbols.AccessorKind]*linkBody)}
		for _, a := range d.AccessorKinds() {
			if b := c.set.Source[a]; b != nil {
				lk.bodies[a] = &linkBody{kind: bodySource, block: ast.CloneBlock(b)}
			} else {
				lk.bodies[a] = p.passthrough(c, a)
			}
		}
		return lk
	}
	return nil
}

// passthrough forwards to the next inner link unchanged. Sequences are passed
// on lazily.
func (p *pass) passthrough(c *chain, a symbols.AccessorKind) *linkBody {
	req := &ast.ProceedExpression{Accessor: a, Kind: lazyKind(c.decl.Shape, a)}
	return &linkBody{kind: bodyPassthrough, block: valueBody(c.decl, a, req)}
}

func (p *pass) redirect(c *chain, r *transform.Redirect, a symbols.AccessorKind) *linkBody {
	req := &ast.ProceedExpression{
		Semantics: ast.SemanticsFinal,
		Kind:      lazyKind(c.decl.Shape, a),
		Member:    r.To,
		Accessor:  a,
		Receiver:  ast.CloneExpression(r.Receiver),
	}
	if to := p.comp.Declaration(r.To); to != nil && to.Kind == symbols.MethodDecl {
		req.Accessor = symbols.AccessorBody
	}
	return &linkBody{kind: bodyRedirect, block: valueBody(c.decl, a, req)}
}

func lazyKind(s symbols.Shape, a symbols.AccessorKind) ast.ProceedKind {
	if a != symbols.AccessorBody {
		return ast.ProceedDefault
	}
	switch s {
	case symbols.ShapeIterator:
		return ast.ProceedEnumerable
	case symbols.ShapeAsyncIterator:
		return ast.ProceedAsyncEnumerable
	}
	return ast.ProceedDefault
}

// valueBody is `return e;` for accessors with a value, `e;` otherwise.
func valueBody(d *symbols.Declaration, a symbols.AccessorKind, e ast.Expression) *ast.Block {
	if d.ReturnsValue(a) {
		return ast.NewBlock(ast.Return(e))
	}
	return ast.NewBlock(ast.ExprStmt(e))
}

// synthesize writes the accessor of an auto member over its backing field.
func (p *pass) synthesize(c *chain, a symbols.AccessorKind) *linkBody {
	var recv ast.Expression = &ast.ThisExpression{}
	if c.decl.Static {
		if t := p.comp.Type(c.decl.Type); t != nil {
			recv = &ast.TypeName{Name: t.Name}
		}
	}
	field := ast.Member(recv, c.backing)
	value := ast.Ident(config.ValueParamName)
	var s ast.Statement
	switch a {
	case symbols.AccessorGet:
		s = ast.Return(field)
	case symbols.AccessorSet:
		s = ast.ExprStmt(ast.Assign(field, "=", value))
	case symbols.AccessorAdd:
		s = ast.ExprStmt(ast.Assign(field, "+=", value))
	case symbols.AccessorRemove:
		s = ast.ExprStmt(ast.Assign(field, "-=", value))
	default:
		s = &ast.EmptyStatement{}
	}
	return &linkBody{kind: bodySource, block: ast.NewBlock(s)}
}

// backingName is _camelName.
func backingName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return config.BackingFieldPrefix + string(unicode.ToLower(r)) + name[size:]
}

// layerSuffix names a layer in generated members: the aspect without its
// Attribute suffix, then the layer name.
func layerSuffix(l transform.Layer) string {
	parts := []string{l.ShortAspect()}
	if l.Name != "" {
		parts = append(parts, l.Name)
	}
	return strings.Join(parts, config.NameSeparator)
}
