package prettyprinter

import (
	"sort"
	"strings"

	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/weaver"
)

// PrintMember renders an emitted member as a member declaration.
func PrintMember(m *weaver.EmittedMember) string {
	p := NewCodePrinter()
	p.printMember(m)
	return p.String()
}

// PrintResult renders every member of a result, separated by blank lines, in
// the order the emitter has to write them.
func PrintResult(r *weaver.WeavingResult) string {
	p := NewCodePrinter()
	p.write("// " + r.Qualified + ": " + r.Status.String())
	p.writeln()
	if r.SourceRenamedTo != "" {
		p.write("// implementation part renamed to " + r.SourceRenamedTo)
		p.writeln()
	}
	for i, m := range r.Members {
		if i > 0 {
			p.writeln()
		}
		p.printMember(m)
	}
	return p.String()
}

// PrintOutput renders every woven result, grouped by declaring type.
func PrintOutput(out *weaver.Output) string {
	byType := make(map[string][]*weaver.WeavingResult)
	for _, r := range out.Woven() {
		byType[r.Type] = append(byType[r.Type], r)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	p := NewCodePrinter()
	for i, t := range types {
		if i > 0 {
			p.writeln()
		}
		p.write("partial class " + t)
		p.writeln()
		p.write("{")
		p.writeln()
		p.indent++
		first := true
		for _, r := range byType[t] {
			for _, m := range r.Members {
				if !first {
					p.writeln()
				}
				first = false
				p.printMember(m)
			}
		}
		p.indent--
		p.write("}")
		p.writeln()
	}
	return p.String()
}

func (p *CodePrinter) printMember(m *weaver.EmittedMember) {
	if m.Role == weaver.RoleBackingField {
		p.write(p.modifiers(m) + m.ReturnType + " " + m.Name + ";")
		p.writeln()
		return
	}

	p.write(p.modifiers(m))
	if m.Kind == symbols.EventDecl {
		p.write("event ")
	}
	name := m.Name
	if m.Interface != "" {
		name = m.Interface + "." + m.Name
	}
	p.write(m.ReturnType + " " + name)
	if m.Kind == symbols.MethodDecl {
		p.write("(" + params(m.Params) + ")")
		p.writeln()
		p.VisitBlock(m.Bodies[symbols.AccessorBody])
		return
	}
	p.writeln()
	p.write("{")
	p.writeln()
	p.indent++
	for _, a := range m.Accessors() {
		p.write(a.String())
		p.writeln()
		p.VisitBlock(m.Bodies[a])
	}
	p.indent--
	p.write("}")
	p.writeln()
}

func (p *CodePrinter) modifiers(m *weaver.EmittedMember) string {
	var mods []string
	if m.Interface == "" && m.Visibility != "" {
		mods = append(mods, m.Visibility)
	}
	if m.Static {
		mods = append(mods, "static")
	}
	if m.Override {
		mods = append(mods, "override")
	}
	if m.Async {
		mods = append(mods, "async")
	}
	if len(mods) == 0 {
		return ""
	}
	return strings.Join(mods, " ") + " "
}

func params(ps []symbols.Parameter) string {
	parts := make([]string, len(ps))
	for i, prm := range ps {
		parts[i] = prm.Type + " " + prm.Name
	}
	return strings.Join(parts, ", ")
}
