package project

import (
	"fmt"
	"strings"

	"github.com/funvibe/weaver/internal/symbols"
)

var declKinds = map[string]symbols.DeclKind{
	"":         symbols.MethodDecl,
	"method":   symbols.MethodDecl,
	"property": symbols.PropertyDecl,
	"event":    symbols.EventDecl,
}

// declaration builds the symbol for a member spec, inferring the shape and
// result type from the declared return type where they are not given.
func declaration(spec *MemberSpec, t symbols.TypeID) (*symbols.Declaration, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("member name is required")
	}
	kind, ok := declKinds[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown member kind %q", spec.Kind)
	}
	d := &symbols.Declaration{
		Name:       spec.Name,
		Kind:       kind,
		Type:       t,
		Visibility: spec.Visibility,
		ReturnType: spec.Returns,
		ResultType: spec.Result,
	}
	for _, m := range spec.Modifiers {
		switch m {
		case "static":
			d.Static = true
		case "virtual":
			d.Virtual = true
		case "override":
			d.Overrides = true
		case "new":
			d.Hides = true
		case "partial":
			d.Partial = true
		case "auto":
			d.Auto = true
		default:
			return nil, fmt.Errorf("unknown modifier %q", m)
		}
	}

	if d.ReturnType == "" {
		if kind != symbols.MethodDecl {
			return nil, fmt.Errorf("%s %s needs a type", kind, spec.Name)
		}
		d.ReturnType = "void"
	}
	shape, result := inferShape(kind, d.ReturnType)
	if spec.Shape != "" {
		if shape, ok = symbols.ParseShape(spec.Shape); !ok {
			return nil, fmt.Errorf("unknown shape %q", spec.Shape)
		}
	}
	d.Shape = shape
	if d.ResultType == "" {
		d.ResultType = result
	}

	for _, p := range spec.Params {
		prm, err := parameter(p)
		if err != nil {
			return nil, err
		}
		d.Params = append(d.Params, prm)
	}
	for _, name := range spec.Accessors {
		a, ok := symbols.ParseAccessor(name)
		if !ok || a == symbols.AccessorBody {
			return nil, fmt.Errorf("unknown accessor %q", name)
		}
		d.Accessors = append(d.Accessors, a)
	}
	return d, nil
}

// inferShape maps a declared type to a shape and its awaited or element type:
// Task<T> is async, IEnumerable<T> an iterator, IAsyncEnumerable<T> an async
// iterator.
func inferShape(kind symbols.DeclKind, returns string) (symbols.Shape, string) {
	switch kind {
	case symbols.PropertyDecl:
		return symbols.ShapeValue, ""
	case symbols.EventDecl:
		return symbols.ShapeVoid, ""
	}
	if returns == "void" {
		return symbols.ShapeVoid, ""
	}
	if returns == "Task" || returns == "ValueTask" {
		return symbols.ShapeAsync, ""
	}
	generic, arg, ok := genericArg(returns)
	if !ok {
		return symbols.ShapeValue, ""
	}
	switch generic {
	case "Task", "ValueTask":
		return symbols.ShapeAsync, arg
	case "IEnumerable", "IEnumerator":
		return symbols.ShapeIterator, arg
	case "IAsyncEnumerable", "IAsyncEnumerator":
		return symbols.ShapeAsyncIterator, arg
	}
	return symbols.ShapeValue, ""
}

func genericArg(t string) (string, string, bool) {
	open := strings.IndexByte(t, '<')
	if open <= 0 || !strings.HasSuffix(t, ">") {
		return "", "", false
	}
	return t[:open], strings.TrimSpace(t[open+1 : len(t)-1]), true
}

// parameter parses "type name". A CancellationToken parameter is the token
// forwarded to async buffering.
func parameter(s string) (symbols.Parameter, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexAny(s, " \t")
	if i <= 0 {
		return symbols.Parameter{}, fmt.Errorf("parameter %q: want \"type name\"", s)
	}
	p := symbols.Parameter{Type: strings.TrimSpace(s[:i]), Name: s[i+1:]}
	p.CancellationToken = p.Type == "CancellationToken"
	return p, nil
}
