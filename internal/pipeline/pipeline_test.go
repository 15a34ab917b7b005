package pipeline_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/pipeline"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/weaver"
)

// Each fixture holds a model.yaml and optionally a weave.yaml, the calls to
// trace, and the expected trace, diagnostics and emitted output.
func TestFixtures(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txtar")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no fixtures")
	}
	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			if err != nil {
				t.Fatal(err)
			}
			sections := make(map[string]string)
			for _, f := range ar.Files {
				sections[f.Name] = string(f.Data)
			}

			ctx := pipeline.NewPipelineContext("model.yaml", []byte(sections["model.yaml"]))
			if src, ok := sections["weave.yaml"]; ok {
				cfg, err := config.ParseConfig([]byte(src), "weave.yaml")
				if err != nil {
					t.Fatal(err)
				}
				ctx.Config = cfg
			}
			for _, line := range strings.Split(sections["calls"], "\n") {
				if strings.TrimSpace(line) == "" {
					continue
				}
				c, err := pipeline.ParseCall(line)
				if err != nil {
					t.Fatal(err)
				}
				ctx.Calls = append(ctx.Calls, c)
			}

			ctx = pipeline.Default().Run(ctx)
			if ctx.Err != nil {
				t.Fatal(ctx.Err)
			}
			if want, ok := sections["diagnostics"]; ok {
				if diff := cmp.Diff(want, formatDiagnostics(ctx.Errors)); diff != "" {
					t.Errorf("diagnostics (-want +got):\n%s", diff)
				}
			} else if diagnostics.HasErrors(ctx.Errors) {
				t.Errorf("unexpected diagnostics: %v", ctx.Errors)
			}
			if want, ok := sections["trace"]; ok {
				if diff := cmp.Diff(want, pipeline.FormatTraces(ctx.Traces)); diff != "" {
					t.Errorf("trace (-want +got):\n%s", diff)
				}
			}
			if want, ok := sections["output"]; ok {
				if diff := cmp.Diff(want, ctx.Printed); diff != "" {
					t.Errorf("output (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func formatDiagnostics(diags []*diagnostics.DiagnosticError) string {
	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(string(d.Code) + " " + d.Declaration + "\n")
	}
	return sb.String()
}

const calc = `
types:
  - name: Calc
    members:
      - name: Add
        returns: int
        params: [int a, int b]
        body: return a + b;
      - name: Greet
        body: Console.WriteLine("hi");
transformations:
  - layer: TraceAttribute
    override: Calc.Add
    body: |
      Console.WriteLine("trace");
      return proceed();
  - layer: CacheAttribute
    override: Calc.Add
    body: return proceed();
`

func TestOrderProcessorListsLayersOutermostFirst(t *testing.T) {
	ctx := pipeline.New(&pipeline.LoadProcessor{}, &pipeline.OrderProcessor{}).
		Run(pipeline.NewPipelineContext("model.yaml", []byte(calc)))
	if ctx.Failed() {
		t.Fatalf("pipeline failed: %v %v", ctx.Err, ctx.Errors)
	}
	var got []string
	for _, l := range ctx.Layers {
		got = append(got, l.String())
	}
	if diff := cmp.Diff([]string{"TraceAttribute#0", "CacheAttribute#1"}, got); diff != "" {
		t.Errorf("layers (-want +got):\n%s", diff)
	}
	if len(ctx.Cycles) != 0 {
		t.Errorf("cycles = %v", ctx.Cycles)
	}
}

func TestOrderProcessorReportsCycles(t *testing.T) {
	ctx := pipeline.NewPipelineContext("model.yaml", []byte(calc))
	ctx.Config.Precedence = []config.Precedence{
		{Before: "TraceAttribute", After: "CacheAttribute"},
		{Before: "CacheAttribute", After: "TraceAttribute"},
	}
	ctx = pipeline.Default().Run(ctx)
	if diff := cmp.Diff([][]string{{"CacheAttribute", "TraceAttribute"}}, ctx.Cycles); diff != "" {
		t.Errorf("cycles (-want +got):\n%s", diff)
	}
	if got := formatDiagnostics(ctx.Errors); got != "W001 Calc.Add\n" {
		t.Errorf("diagnostics = %q", got)
	}
}

func TestLoadFailureStopsLaterStages(t *testing.T) {
	ctx := pipeline.NewPipelineContext("model.yaml", []byte("types: [\n"))
	c, err := pipeline.ParseCall("Calc.Add(1, 2)")
	if err != nil {
		t.Fatal(err)
	}
	ctx.Calls = []pipeline.Call{c}
	ctx = pipeline.Default().Run(ctx)
	if ctx.Err == nil {
		t.Fatal("malformed model accepted")
	}
	if ctx.Output != nil || ctx.Printed != "" || len(ctx.Traces) != 0 {
		t.Error("stages after the failure ran")
	}
}

func TestVerifyReportsCollisions(t *testing.T) {
	ctx := pipeline.New(&pipeline.LoadProcessor{}).Run(pipeline.NewPipelineContext("model.yaml", []byte(calc)))
	add, _ := ctx.Project.Compilation.LookupQualified("Calc.Add")
	ctx.Output = &weaver.Output{Results: []*weaver.WeavingResult{{
		Decl:      add.ID,
		Qualified: "Calc.Add",
		Type:      "Calc",
		Status:    weaver.StatusWoven,
		Members: []*weaver.EmittedMember{
			{Name: "Add", Kind: symbols.MethodDecl, Params: add.Params},
			{Name: "Greet", Role: weaver.RoleHelper, Kind: symbols.MethodDecl},
		},
	}}}
	ctx = pipeline.New(&pipeline.VerifyProcessor{}, &pipeline.EmitProcessor{}).Run(ctx)
	if got := formatDiagnostics(ctx.Errors); got != "W013 Calc.Add\n" {
		t.Errorf("diagnostics = %q", got)
	}
	r := ctx.Output.Result(add.ID)
	if r.Status != weaver.StatusSkipped || r.Members != nil {
		t.Errorf("colliding result = %s with %d members, want skipped with none", r.Status, len(r.Members))
	}
	if ctx.Printed != "" {
		t.Errorf("skipped declaration printed:\n%s", ctx.Printed)
	}
}

func TestParseCall(t *testing.T) {
	c, err := pipeline.ParseCall(` Calc.Add(1, "two") `)
	if err != nil {
		t.Fatal(err)
	}
	if c.Member != "Calc.Add" || c.Text != `Calc.Add(1, "two")` || len(c.Args) != 2 {
		t.Fatalf("call = %+v", c)
	}
	if got := c.Args[1].Inspect(); got != "two" {
		t.Errorf("second argument = %q", got)
	}

	prop, err := pipeline.ParseCall("Calc.Name")
	if err != nil || prop.Member != "Calc.Name" || prop.Args != nil {
		t.Errorf("property read = %+v, %v", prop, err)
	}

	for _, bad := range []string{"Add(1)", "Calc.Add(x)", "Calc.Add(", "1 + 2"} {
		if _, err := pipeline.ParseCall(bad); err == nil {
			t.Errorf("ParseCall(%q) accepted", bad)
		}
	}
}
