package evaluator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/evaluator"
	"github.com/funvibe/weaver/internal/project"
	"github.com/funvibe/weaver/internal/weaver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const calcTypes = `
types:
  - name: Calc
    members:
      - name: Add
        returns: int
        params: [int a, int b]
        body: |
          if (a > 100) {
              return 0;
          }
          return a + b;
      - name: Items
        returns: IEnumerable<int>
        body: |
          Console.WriteLine("produce 1");
          yield return 1;
          Console.WriteLine("produce 2");
          yield return 2;
      - name: Sum
        returns: int
        body: |
          var total = 0;
          foreach (var x in Items()) {
              Console.WriteLine("consume {0}", x);
              total = total + x;
          }
          return total;
      - name: First
        returns: int
        body: |
          foreach (var x in Items()) {
              return x;
          }
          return -1;
      - name: LoadAsync
        returns: Task<int>
        body: |
          await Task.Delay(1);
          Console.WriteLine("loaded");
          return 42;
      - name: Name
        kind: property
        returns: string
        modifiers: [auto]
      - name: Greet
        returns: string
        body: |
          Name = "bob";
          return "hello " + Name;
      - name: Changed
        kind: event
        returns: EventHandler
        modifiers: [auto]
      - name: Subscribe
        returns: EventHandler
        body: |
          Changed += "h1";
          Changed += "h2";
          Changed += "h3";
          Changed -= "h2";
          return Changed;
      - name: Loop
        returns: int
        body: return Loop();
`

const traceAdd = `
  - layer: TraceAttribute
    override: Calc.Add
    body: |
      var r = proceed();
      Console.WriteLine("result {0}", r);
      return r;
`

const traceItems = `
  - layer: TraceAttribute
    override: Calc.Items
    body: |
      Console.WriteLine("trace");
      return proceed();
`

const traceItemsLazy = `
  - layer: TraceAttribute
    override: Calc.Items
    body: |
      Console.WriteLine("trace");
      return proceed.enumerable();
`

const traceLoad = `
  - layer: TraceAttribute
    override: Calc.LoadAsync
    body: |
      Console.WriteLine("trace");
      return proceed();
`

const traceName = `
  - layer: TraceAttribute
    override: Calc.Name
    get: |
      Console.WriteLine("get");
      return proceed();
`

// build loads the model and, if transformations are given, weaves it.
func build(t *testing.T, types string, transformations ...string) *evaluator.Evaluator {
	t.Helper()
	src := types
	if len(transformations) > 0 {
		src += "transformations:\n" + strings.Join(transformations, "")
	}
	p, diags, err := project.Parse([]byte(src), "model.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) > 0 {
		t.Fatalf("model diagnostics: %v", diags)
	}
	var out *weaver.Output
	if len(transformations) > 0 {
		out, err = weaver.WeaveAll(context.Background(), p.Compilation, config.Default(), p.Sets)
		if err != nil {
			t.Fatal(err)
		}
		for _, d := range out.Diagnostics {
			if d.IsError() {
				t.Fatalf("weaving: %v", d)
			}
		}
	}
	return evaluator.New(evaluator.NewProgram(p.Compilation, p.Sets, out))
}

func call(t *testing.T, e *evaluator.Evaluator, member string, args ...evaluator.Object) (string, []string) {
	t.Helper()
	res, lines, err := e.Call(context.Background(), member, args...)
	if err != nil {
		t.Fatalf("%s: %v (output %q)", member, err, lines)
	}
	return res.Inspect(), lines
}

func ints(vs ...int64) []evaluator.Object {
	out := make([]evaluator.Object, len(vs))
	for i, v := range vs {
		out[i] = &evaluator.Integer{Value: v}
	}
	return out
}

func TestCall(t *testing.T) {
	tests := []struct {
		name            string
		transformations []string
		member          string
		args            []evaluator.Object
		want            string
		wantOut         []string
	}{
		{"source", nil, "Calc.Add", ints(1, 2), "3", nil},
		{"source_early_return", nil, "Calc.Add", ints(200, 1), "0", nil},
		{"woven", []string{traceAdd}, "Calc.Add", ints(1, 2), "3", []string{"result 3"}},
		{"woven_early_return", []string{traceAdd}, "Calc.Add", ints(200, 1), "0", []string{"result 0"}},
		{"iterator_source", nil, "Calc.Sum", nil, "3",
			[]string{"produce 1", "consume 1", "produce 2", "consume 2"}},
		{"iterator_buffered", []string{traceItems}, "Calc.Sum", nil, "3",
			[]string{"trace", "produce 1", "produce 2", "consume 1", "consume 2"}},
		{"iterator_lazy", []string{traceItemsLazy}, "Calc.Sum", nil, "3",
			[]string{"trace", "produce 1", "consume 1", "produce 2", "consume 2"}},
		{"iterator_abandoned", []string{traceItemsLazy}, "Calc.First", nil, "1",
			[]string{"trace", "produce 1"}},
		{"iterator_result", nil, "Calc.Items", nil, "[1, 2]", []string{"produce 1", "produce 2"}},
		{"async_source", nil, "Calc.LoadAsync", nil, "42", []string{"loaded"}},
		{"async_woven", []string{traceLoad}, "Calc.LoadAsync", nil, "42", []string{"trace", "loaded"}},
		{"auto_property", nil, "Calc.Greet", nil, "hello bob", nil},
		{"auto_property_woven", []string{traceName}, "Calc.Greet", nil, "hello bob", []string{"get"}},
		{"field_like_event", nil, "Calc.Subscribe", nil, "h1+h3", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := build(t, calcTypes, tt.transformations...)
			got, out := call(t, e, tt.member, tt.args...)
			if got != tt.want {
				t.Errorf("result = %q, want %q", got, tt.want)
			}
			if diff := cmp.Diff(tt.wantOut, out); diff != "" {
				t.Errorf("output (-want +got):\n%s", diff)
			}
		})
	}
}

const shapes = `
types:
  - name: Shape
    members:
      - name: Describe
        returns: string
        modifiers: [virtual]
        body: return "shape";
      - name: Show
        returns: string
        body: return Describe();
  - name: Circle
    base: Shape
    members:
      - name: Describe
        returns: string
        modifiers: [override]
        body: return "circle of " + base.Describe();
`

func TestVirtualDispatch(t *testing.T) {
	e := build(t, shapes)
	if got, _ := call(t, e, "Shape.Show"); got != "shape" {
		t.Errorf("Shape.Show = %q", got)
	}
	if got, _ := call(t, e, "Circle.Show"); got != "circle of shape" {
		t.Errorf("Circle.Show = %q", got)
	}
}

func TestCallErrors(t *testing.T) {
	e := build(t, calcTypes)
	tests := []struct {
		name   string
		member string
		args   []evaluator.Object
		want   string
	}{
		{"unqualified", "Add", nil, "not qualified"},
		{"unknown_type", "Nope.Add", nil, "unknown type"},
		{"arity", "Calc.Add", ints(1), "no runnable member"},
		{"recursion", "Calc.Loop", nil, "call depth exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.Call(context.Background(), tt.member, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestCallHonorsContext(t *testing.T) {
	e := build(t, calcTypes)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := e.Call(ctx, "Calc.Sum"); err == nil || !strings.Contains(err.Error(), "aborted") {
		t.Errorf("error = %v", err)
	}
}

func TestValue(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"42", "42"},
		{`"x"`, "x"},
		{"1 + 2 * 3", "7"},
		{"true", "True"},
		{"null ?? 5", "5"},
	}
	for _, tt := range tests {
		got, err := evaluator.Value(tt.src)
		if err != nil {
			t.Errorf("Value(%s): %v", tt.src, err)
			continue
		}
		if got.Inspect() != tt.want {
			t.Errorf("Value(%s) = %q, want %q", tt.src, got.Inspect(), tt.want)
		}
	}
	if _, err := evaluator.Value("x +"); err == nil {
		t.Error("malformed expression accepted")
	}
}
