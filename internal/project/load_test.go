package project_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/project"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/transform"
)

const calcModel = `
aspects:
  - name: CacheAttribute
    layers: ["", build]
types:
  - name: Base
    members:
      - name: Add
        modifiers: [virtual]
        returns: int
        params: [int a, int b]
        body: return a + b;
  - name: Calc
    base: Base
    interfaces: [IAdder]
    members:
      - name: Add
        modifiers: [override]
        returns: int
        params: [int a, int b]
        body: |
          Console.WriteLine("add");
          return invoke.base.Add(a, b);
      - name: LoadAsync
        returns: Task<int>
        params: [CancellationToken ct]
        body: return 1;
      - name: Name
        kind: property
        returns: string
        modifiers: [auto]
        accessors: [get]
transformations:
  - layer: TraceAttribute
    override: Calc.Add
    body: |
      Console.WriteLine("trace");
      return proceed();
  - layer: CacheAttribute:build
    order: 4
    override: Calc.Add
    body: return proceed();
  - layer: AuditAttribute
    introduce:
      type: Calc
      member:
        name: Reset
    policy: new
    body: Console.WriteLine("reset");
  - layer: TraceAttribute
    proxy: Calc.Add
    interface: IAdder
`

func parse(t *testing.T, src string) (*project.Project, []*diagnostics.DiagnosticError) {
	t.Helper()
	p, diags, err := project.Parse([]byte(src), "model.yaml")
	if err != nil {
		t.Fatal(err)
	}
	return p, diags
}

func TestParseModel(t *testing.T) {
	p, diags := parse(t, calcModel)
	if len(diags) > 0 {
		t.Fatalf("diagnostics: %v", diags)
	}
	comp := p.Compilation

	calc, ok := comp.TypeByName("Calc")
	if !ok {
		t.Fatal("Calc not declared")
	}
	base, _ := comp.TypeByName("Base")
	if calc.Base != base.ID {
		t.Errorf("Calc base = %d, want %d", calc.Base, base.ID)
	}
	if len(calc.Interfaces) != 1 || !comp.Type(calc.Interfaces[0]).Interface {
		t.Errorf("Calc interfaces = %v", calc.Interfaces)
	}

	load, _ := comp.LookupQualified("Calc.LoadAsync")
	if load.Shape != symbols.ShapeAsync || load.ResultType != "int" {
		t.Errorf("LoadAsync shape = %s result %q", load.Shape, load.ResultType)
	}
	if !load.Params[0].CancellationToken {
		t.Error("ct is not marked as a cancellation token")
	}
	name, _ := comp.LookupQualified("Calc.Name")
	if !name.Auto || name.HasAccessor(symbols.AccessorSet) {
		t.Errorf("Name = %+v", name)
	}

	add, ok := p.Set("Calc.Add")
	if !ok {
		t.Fatal("no set for Calc.Add")
	}
	if got := len(add.All()); got != 3 {
		t.Errorf("Calc.Add transformations = %d, want 3", got)
	}
	wantLayers := []transform.Layer{
		{Aspect: "CacheAttribute", Name: "build", Order: 4, Position: 1},
		{Aspect: "TraceAttribute", Order: 0},
	}
	if diff := cmp.Diff(wantLayers, add.Layers()); diff != "" {
		t.Errorf("layers (-want +got):\n%s", diff)
	}

	// Member names resolve in the context type first.
	reqs := ast.Proceeds(add.Source[symbols.AccessorBody])
	if len(reqs) != 1 || reqs[0].Member != add.Decl.ID || reqs[0].Semantics != ast.SemanticsBase {
		t.Errorf("source requests = %+v", reqs)
	}

	reset, ok := p.Set("Calc.Reset")
	if !ok {
		t.Fatal("no set for the introduced Reset")
	}
	in, ok := reset.Introduction()
	if !ok || in.Policy != transform.PolicyNew || !reset.Decl.Introduced {
		t.Errorf("introduction = %+v", in)
	}

	if _, ok := p.Set("Calc.Name"); ok {
		t.Error("untransformed auto property has a set")
	}
}

func TestParseModelDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  []diagnostics.ErrorCode
	}{
		{"unknown_target", `
types: [{name: Calc}]
transformations:
  - {layer: TraceAttribute, override: Calc.Missing, body: "return proceed();"}
`, []diagnostics.ErrorCode{diagnostics.ErrW009}},
		{"syntax_error", `
types:
  - name: Calc
    members:
      - name: Run
        body: |
          Console.WriteLine("x")
`, []diagnostics.ErrorCode{diagnostics.ErrP001}},
		{"two_kinds", `
types: [{name: Calc, members: [{name: Run, body: "return;"}]}]
transformations:
  - {layer: TraceAttribute, override: Calc.Run, proxy: Calc.Run, interface: IRun}
`, []diagnostics.ErrorCode{diagnostics.ErrM001}},
		{"unknown_accessor_key", `
types: [{name: Calc, members: [{name: Run, bdy: "return;"}]}]
`, []diagnostics.ErrorCode{diagnostics.ErrM001}},
		{"undeclared_layer", `
aspects: [{name: CacheAttribute, layers: [""]}]
types: [{name: Calc, members: [{name: Run, body: "return;"}]}]
transformations:
  - {layer: "CacheAttribute:build", override: Calc.Run, body: "proceed();"}
`, []diagnostics.ErrorCode{diagnostics.ErrM001}},
		{"duplicate", `
types: [{name: Calc, members: [{name: Run, body: "return;"}]}]
transformations:
  - {layer: TraceAttribute, override: Calc.Run, body: "proceed();"}
  - {layer: TraceAttribute, override: Calc.Run, body: "proceed();"}
`, []diagnostics.ErrorCode{diagnostics.ErrW008}},
		{"authored_shape_key", `
types: [{name: Calc, members: [{name: Run, body: "return;"}]}]
transformations:
  - {layer: TraceAttribute, override: Calc.Run, shape: value, body: "proceed();"}
`, []diagnostics.ErrorCode{diagnostics.ErrM001}},
		{"template_syntax_error", `
types: [{name: Calc, members: [{name: Run, body: "return;"}]}]
transformations:
  - {layer: TraceAttribute, override: Calc.Run, body: 'Console.WriteLine("x")'}
`, []diagnostics.ErrorCode{diagnostics.ErrP001, diagnostics.ErrW005}},
		{"getter_template_on_method", `
types: [{name: Calc, members: [{name: Run, body: "return;"}]}]
transformations:
  - {layer: TraceAttribute, override: Calc.Run, get: "return proceed();"}
`, []diagnostics.ErrorCode{diagnostics.ErrW004}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := parse(t, tt.model)
			var got []diagnostics.ErrorCode
			for _, d := range diags {
				got = append(got, d.Code)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("codes (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrorLineIsFileLine(t *testing.T) {
	_, diags := parse(t, `types:
  - name: Calc
    members:
      - name: Run
        body: |
          Console.WriteLine("x");
          return +;
`)
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v", diags)
	}
	if diags[0].Line != 7 {
		t.Errorf("line = %d, want 7", diags[0].Line)
	}
}

func TestParseMalformedYAML(t *testing.T) {
	if _, _, err := project.Parse([]byte("types: ["), "model.yaml"); err == nil {
		t.Error("expected an error")
	}
}
