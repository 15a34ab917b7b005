package transform_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/transform"
)

var (
	trace = transform.Layer{Aspect: "TraceAttribute", Order: 0}
	cache = transform.Layer{Aspect: "CacheAttribute", Order: 1}
)

func block() *transform.Body {
	return &transform.Body{Block: ast.NewBlock(ast.ExprStmt(&ast.ProceedExpression{}))}
}

func property() *symbols.Declaration {
	return &symbols.Declaration{ID: 1, Name: "Name", Kind: symbols.PropertyDecl, ReturnType: "string"}
}

func code(d *diagnostics.DiagnosticError) diagnostics.ErrorCode {
	if d == nil {
		return ""
	}
	return d.Code
}

func TestSetAdd(t *testing.T) {
	getter := &transform.Override{Decl: 1, By: trace, Bodies: map[symbols.AccessorKind]*transform.Body{symbols.AccessorGet: block()}}
	tests := []struct {
		name  string
		decl  *symbols.Declaration
		first transform.Transformation
		t     transform.Transformation
		want  diagnostics.ErrorCode
	}{
		{"accepted", property(), nil, getter, ""},
		{"other_declaration", property(), nil,
			&transform.Override{Decl: 2, By: trace, Bodies: map[symbols.AccessorKind]*transform.Body{symbols.AccessorGet: block()}},
			diagnostics.ErrW009},
		{"foreign_accessor", property(), nil,
			&transform.Override{Decl: 1, By: trace, Bodies: map[symbols.AccessorKind]*transform.Body{symbols.AccessorAdd: block()}},
			diagnostics.ErrW004},
		{"undeclared_accessor",
			&symbols.Declaration{ID: 1, Name: "Id", Kind: symbols.PropertyDecl, Accessors: []symbols.AccessorKind{symbols.AccessorGet}}, nil,
			&transform.Override{Decl: 1, By: trace, Bodies: map[symbols.AccessorKind]*transform.Body{symbols.AccessorSet: block()}},
			diagnostics.ErrW004},
		{"occupied_slot", property(), getter,
			&transform.Redirect{Decl: 1, By: trace, To: 3},
			diagnostics.ErrW008},
		{"other_layer", property(), getter,
			&transform.Redirect{Decl: 1, By: cache, To: 3},
			""},
		{"proxy_beside_override", property(), getter,
			&transform.ProxyInterfaceMember{Decl: 1, By: trace, Interface: "INamed"},
			""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := transform.NewSet(tt.decl)
			if tt.first != nil {
				if d := s.Add(tt.first, "Calc.Name"); d != nil {
					t.Fatalf("first transformation rejected: %v", d)
				}
			}
			if got := code(s.Add(tt.t, "Calc.Name")); got != tt.want {
				t.Errorf("Add = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetQueries(t *testing.T) {
	s := transform.NewSet(property())
	get := &transform.Override{Decl: 1, By: cache, Bodies: map[symbols.AccessorKind]*transform.Body{symbols.AccessorGet: block()}}
	set := &transform.Override{Decl: 1, By: trace, Bodies: map[symbols.AccessorKind]*transform.Body{symbols.AccessorSet: block()}}
	proxy := &transform.ProxyInterfaceMember{Decl: 1, By: trace, Interface: "INamed"}
	for _, tr := range []transform.Transformation{get, set, proxy} {
		if d := s.Add(tr, "Calc.Name"); d != nil {
			t.Fatal(d)
		}
	}

	if s.Len() != 3 || len(s.All()) != 3 {
		t.Errorf("Len = %d", s.Len())
	}
	var layers []string
	for _, l := range s.Layers() {
		layers = append(layers, l.String())
	}
	if diff := cmp.Diff([]string{"CacheAttribute#1", "TraceAttribute#0"}, layers); diff != "" {
		t.Errorf("layers (-want +got):\n%s", diff)
	}
	if got, ok := s.At(trace.ID(), symbols.AccessorSet); !ok || got != set {
		t.Errorf("At(trace, set) = %v, %v", got, ok)
	}
	if _, ok := s.At(trace.ID(), symbols.AccessorGet); ok {
		t.Error("trace has no getter")
	}
	if got := s.ForLayer(trace.ID()); len(got) != 2 || got[0] != set || got[1] != proxy {
		t.Errorf("ForLayer(trace) = %v", got)
	}
	if got := s.Proxies(); len(got) != 1 || got[0] != proxy {
		t.Errorf("Proxies = %v", got)
	}
	if _, ok := s.Introduction(); ok {
		t.Error("no introduction was added")
	}
}

func TestRedirectCoversAccessors(t *testing.T) {
	all := &transform.Redirect{Decl: 1, By: trace}
	only := &transform.Redirect{Decl: 1, By: trace, Only: []symbols.AccessorKind{symbols.AccessorSet, symbols.AccessorGet}}
	if !all.Covers(symbols.AccessorSet) || !only.Covers(symbols.AccessorGet) {
		t.Error("redirect does not cover its accessors")
	}
	if only.Covers(symbols.AccessorAdd) {
		t.Error("redirect covers an accessor it does not name")
	}
	if diff := cmp.Diff([]symbols.AccessorKind{symbols.AccessorGet, symbols.AccessorSet}, only.Accessors()); diff != "" {
		t.Errorf("accessors (-want +got):\n%s", diff)
	}
}

func TestNames(t *testing.T) {
	if got := (transform.Layer{Aspect: "Weaver.Aspects.LogAttribute"}).ShortAspect(); got != "Log" {
		t.Errorf("ShortAspect = %q", got)
	}
	if got := (transform.Layer{Aspect: "Attribute"}).ShortAspect(); got != "Attribute" {
		t.Errorf("ShortAspect of a bare suffix = %q", got)
	}
	if got := (transform.Layer{Aspect: "Contract", Name: "build", Order: 2}).ID(); got != "Contract:build#2" {
		t.Errorf("ID = %q", got)
	}
	for _, p := range []transform.IntroducePolicy{transform.PolicyDefault, transform.PolicyFail, transform.PolicyNew, transform.PolicyOverride, transform.PolicyIgnore} {
		if got, ok := transform.ParsePolicy(p.String()); !ok || got != p {
			t.Errorf("ParsePolicy(%q) = %v, %v", p.String(), got, ok)
		}
	}
	if got, ok := transform.ParsePolicy(""); !ok || got != transform.PolicyDefault {
		t.Errorf("ParsePolicy(\"\") = %v, %v", got, ok)
	}
	if _, ok := transform.ParsePolicy("merge"); ok {
		t.Error("unknown policy accepted")
	}
}
