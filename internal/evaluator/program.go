package evaluator

import (
	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/transform"
	"github.com/funvibe/weaver/internal/weaver"
)

// Method is one executable member of a type, as the emitter would write it.
type Method struct {
	Name   string
	Kind   symbols.DeclKind
	Static  bool
	Async   bool
	Virtual bool // Calls through this dispatch on the runtime type
	Params  []string
	Bodies map[symbols.AccessorKind]*ast.Block
}

// Program is the executable view of a compilation after weaving: woven
// declarations contribute their emitted members, every other declaration its
// source bodies.
type Program struct {
	comp    *symbols.Compilation
	methods map[symbols.TypeID]map[string][]*Method
	fields  map[symbols.TypeID]map[string]storage // Backing fields
}

type storage struct {
	typ    string
	static bool
	event  bool
}

// NewProgram builds the program. A nil out runs the unwoven sources.
func NewProgram(comp *symbols.Compilation, sets []*transform.TransformationSet, out *weaver.Output) *Program {
	p := &Program{
		comp:    comp,
		methods: make(map[symbols.TypeID]map[string][]*Method),
		fields:  make(map[symbols.TypeID]map[string]storage),
	}
	for _, s := range sets {
		d := s.Decl
		var r *weaver.WeavingResult
		if out != nil {
			r = out.Result(d.ID)
		}
		switch {
		case r != nil && r.Status == weaver.StatusDropped:
		case r != nil && r.Status == weaver.StatusWoven:
			for _, m := range r.Members {
				switch m.Role {
				case weaver.RoleBackingField:
					if p.fields[d.Type] == nil {
						p.fields[d.Type] = make(map[string]storage)
					}
					p.fields[d.Type][m.Name] = storage{typ: m.ReturnType, static: m.Static, event: d.Kind == symbols.EventDecl}
				case weaver.RoleProxy:
					p.add(d.Type, emitted(m, m.Interface+"."+m.Name, false))
				case weaver.RolePrimary:
					p.add(d.Type, emitted(m, m.Name, d.Virtual || d.Overrides))
				default:
					p.add(d.Type, emitted(m, m.Name, false))
				}
			}
			if r.SourceRenamedTo != "" && len(s.Source) > 0 {
				p.add(d.Type, source(d, r.SourceRenamedTo, s.Source, false))
			}
		case len(s.Source) > 0 && !d.Introduced:
			p.add(d.Type, source(d, d.Name, s.Source, d.Virtual || d.Overrides))
		}
	}
	return p
}

func emitted(m *weaver.EmittedMember, name string, virtual bool) *Method {
	params := make([]string, len(m.Params))
	for i, prm := range m.Params {
		params[i] = prm.Name
	}
	return &Method{Name: name, Kind: m.Kind, Static: m.Static, Async: m.Async, Virtual: virtual, Params: params, Bodies: m.Bodies}
}

func source(d *symbols.Declaration, name string, bodies map[symbols.AccessorKind]*ast.Block, virtual bool) *Method {
	params := make([]string, len(d.Params))
	for i, prm := range d.Params {
		params[i] = prm.Name
	}
	return &Method{
		Name:    name,
		Kind:    d.Kind,
		Static:  d.Static,
		Async:   d.Shape == symbols.ShapeAsync,
		Virtual: virtual,
		Params:  params,
		Bodies:  bodies,
	}
}

func (p *Program) add(t symbols.TypeID, m *Method) {
	if p.methods[t] == nil {
		p.methods[t] = make(map[string][]*Method)
	}
	p.methods[t][m.Name] = append(p.methods[t][m.Name], m)
}

// find looks name up in start and then its base types. A negative arity
// matches properties and events, any other arity methods with that many
// parameters.
func (p *Program) find(start symbols.TypeID, name string, arity int) (*Method, symbols.TypeID) {
	for _, t := range append([]symbols.TypeID{start}, p.comp.BaseChain(start)...) {
		for _, m := range p.methods[t][name] {
			if arity < 0 && m.Kind != symbols.MethodDecl {
				return m, t
			}
			if arity >= 0 && m.Kind == symbols.MethodDecl && len(m.Params) == arity {
				return m, t
			}
		}
	}
	return nil, symbols.NoType
}

// field finds a backing field or auto member: the type declaring it and its
// storage.
func (p *Program) field(start symbols.TypeID, name string) (symbols.TypeID, storage, bool) {
	for _, t := range append([]symbols.TypeID{start}, p.comp.BaseChain(start)...) {
		if st, ok := p.fields[t][name]; ok {
			return t, st, true
		}
		for _, id := range p.comp.Type(t).Members {
			if d := p.comp.Declaration(id); d.Name == name && d.Kind != symbols.MethodDecl {
				return t, storage{typ: d.ReturnType, static: d.Static, event: d.Kind == symbols.EventDecl}, true
			}
		}
	}
	return symbols.NoType, storage{}, false
}
