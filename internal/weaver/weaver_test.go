package weaver_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/prettyprinter"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/transform"
	"github.com/funvibe/weaver/internal/weaver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	trace = transform.Layer{Aspect: "TraceAttribute", Order: 0}
	cache = transform.Layer{Aspect: "CacheAttribute", Order: 1}
)

// model is a small compilation: class Calc with whatever declarations a test
// adds, plus an unrelated class Other with a void Ping().
type model struct {
	t     *testing.T
	comp  *symbols.Compilation
	calc  symbols.TypeID
	other symbols.TypeID
	ping  symbols.DeclID
	sets  []*transform.TransformationSet
}

func newModel(t *testing.T) *model {
	t.Helper()
	m := &model{t: t, comp: symbols.NewCompilation()}
	calc, err := m.comp.AddType("Calc", symbols.NoType)
	if err != nil {
		t.Fatal(err)
	}
	other, err := m.comp.AddType("Other", symbols.NoType)
	if err != nil {
		t.Fatal(err)
	}
	m.calc, m.other = calc.ID, other.ID
	m.ping = m.declare(&symbols.Declaration{Name: "Ping", Type: other.ID, Shape: symbols.ShapeVoid, ReturnType: "void"})
	return m
}

func (m *model) declare(d *symbols.Declaration) symbols.DeclID {
	m.t.Helper()
	if d.Type == symbols.NoType {
		d.Type = m.calc
	}
	id, err := m.comp.AddDeclaration(d)
	if err != nil {
		m.t.Fatalf("declare %s: %v", d.Name, err)
	}
	return id
}

// add declares Calc.Add(int a, int b) => a + b.
func (m *model) add() symbols.DeclID {
	return m.declare(&symbols.Declaration{
		Name: "Add", Shape: symbols.ShapeValue, ReturnType: "int",
		Params: []symbols.Parameter{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
	})
}

// set starts the transformation set of d. Source bodies are keyed by
// accessor.
func (m *model) set(id symbols.DeclID, source map[symbols.AccessorKind]*ast.Block, ts ...transform.Transformation) *transform.TransformationSet {
	m.t.Helper()
	s := transform.NewSet(m.comp.Declaration(id))
	for a, b := range source {
		s.Source[a] = b
	}
	for _, tr := range ts {
		if err := s.Add(tr, m.comp.QualifiedName(id)); err != nil {
			m.t.Fatalf("add %s: %v", tr.Kind(), err)
		}
	}
	m.sets = append(m.sets, s)
	return s
}

func (m *model) weave(cfg *config.Config) *weaver.Output {
	m.t.Helper()
	m.comp.Seal()
	out, err := weaver.WeaveAll(context.Background(), m.comp, cfg, m.sets)
	if err != nil {
		m.t.Fatalf("weave: %v", err)
	}
	return out
}

func body(stmts ...ast.Statement) map[symbols.AccessorKind]*ast.Block {
	return map[symbols.AccessorKind]*ast.Block{symbols.AccessorBody: ast.NewBlock(stmts...)}
}

func writeLine(s string) ast.Statement {
	return ast.ExprStmt(ast.Call(ast.Member(ast.Ident("Console"), "WriteLine"), ast.Str(s)))
}

func proceed() *ast.ProceedExpression { return &ast.ProceedExpression{} }

func sum() ast.Expression {
	return &ast.BinaryExpression{Left: ast.Ident("a"), Operator: "+", Right: ast.Ident("b")}
}

func override(id symbols.DeclID, l transform.Layer, stmts ...ast.Statement) *transform.Override {
	return &transform.Override{Decl: id, By: l, Bodies: map[symbols.AccessorKind]*transform.Body{
		symbols.AccessorBody: {Block: ast.NewBlock(stmts...)},
	}}
}

// tracing writes the layer's name, then proceeds.
func tracing(id symbols.DeclID, l transform.Layer, name string) *transform.Override {
	return override(id, l, writeLine(name), ast.Return(proceed()))
}

func noInlining() *config.Config {
	cfg := config.Default()
	off := false
	cfg.Inlining = &off
	return cfg
}

func woven(t *testing.T, out *weaver.Output, id symbols.DeclID) *weaver.WeavingResult {
	t.Helper()
	r := out.Result(id)
	if r == nil {
		t.Fatalf("no result for declaration %d", id)
	}
	if r.Status != weaver.StatusWoven {
		t.Fatalf("%s: status %s, diagnostics %v", r.Qualified, r.Status, r.Diagnostics)
	}
	return r
}

func assertMember(t *testing.T, r *weaver.WeavingResult, name, want string) {
	t.Helper()
	m := r.Member(name)
	if m == nil {
		t.Fatalf("%s: no member %s", r.Qualified, name)
	}
	if diff := cmp.Diff(want, prettyprinter.PrintMember(m)); diff != "" {
		t.Errorf("%s (-want +got):\n%s", name, diff)
	}
}

func codes(ds []*diagnostics.DiagnosticError) []diagnostics.ErrorCode {
	var out []diagnostics.ErrorCode
	for _, d := range ds {
		out = append(out, d.Code)
	}
	return out
}

func TestWeaveInlinesChainOutermostFirst(t *testing.T) {
	m := newModel(t)
	add := m.add()
	m.set(add, body(ast.Return(sum())), tracing(add, cache, "Cache"), tracing(add, trace, "Trace"))
	r := woven(t, m.weave(nil), add)

	assertMember(t, r, "Add", `public int Add(int a, int b)
{
    Console.WriteLine("Trace");
    {
        Console.WriteLine("Cache");
        {
            return a + b;
        }
    }
}
`)
	if len(r.Members) != 1 {
		t.Errorf("got %d members, want only the primary", len(r.Members))
	}
	if diff := cmp.Diff([]string{"TraceAttribute#0", "CacheAttribute#1"}, r.Layers); diff != "" {
		t.Errorf("layers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"CacheAttribute#1", "source"}, r.Inlined); diff != "" {
		t.Errorf("inlined (-want +got):\n%s", diff)
	}
}

func TestWeaveWithoutInliningEmitsHelpers(t *testing.T) {
	m := newModel(t)
	add := m.add()
	m.set(add, body(ast.Return(sum())), tracing(add, trace, "Trace"), tracing(add, cache, "Cache"))
	r := woven(t, m.weave(noInlining()), add)

	assertMember(t, r, "Add", `public int Add(int a, int b)
{
    Console.WriteLine("Trace");
    return this.Add_Cache(a, b);
}
`)
	assertMember(t, r, "Add_Cache", `private int Add_Cache(int a, int b)
{
    Console.WriteLine("Cache");
    return this.Add_Source(a, b);
}
`)
	assertMember(t, r, "Add_Source", `private int Add_Source(int a, int b)
{
    return a + b;
}
`)
	if r.Member("Add_Cache").Layer != "CacheAttribute#1" || r.Member("Add_Source").Layer != "" {
		t.Errorf("helper layers: %q, %q", r.Member("Add_Cache").Layer, r.Member("Add_Source").Layer)
	}
}

func TestWeaveIsIdempotent(t *testing.T) {
	m := newModel(t)
	add := m.add()
	m.set(add, body(ast.Return(sum())), tracing(add, trace, "Trace"), tracing(add, cache, "Cache"))
	m.comp.Seal()
	s := weaver.NewSession(m.comp, noInlining())

	first, err := s.Weave(context.Background(), m.sets)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Weave(context.Background(), m.sets)
	if err != nil {
		t.Fatal(err)
	}
	a, b := first.Result(add), second.Result(add)
	if a.Fingerprint != b.Fingerprint {
		t.Errorf("fingerprints differ: %s vs %s", a.Fingerprint, b.Fingerprint)
	}
	if diff := cmp.Diff(prettyprinter.PrintResult(a), prettyprinter.PrintResult(b)); diff != "" {
		t.Errorf("second pass differs (-first +second):\n%s", diff)
	}
}

func TestWeaveRenamesCollidingLocals(t *testing.T) {
	m := newModel(t)
	add := m.add()
	keep := func(l transform.Layer, name string) *transform.Override {
		return override(add, l,
			&ast.LocalDeclaration{Type: "var", Name: "result", Value: proceed()},
			writeLine(name),
			ast.Return(ast.Ident("result")),
		)
	}
	m.set(add, body(ast.Return(sum())), keep(trace, "Trace"), keep(cache, "Cache"))
	r := woven(t, m.weave(nil), add)

	assertMember(t, r, "Add", `public int Add(int a, int b)
{
    int result;
    {
        int result_1;
        {
            result_1 = a + b;
        }
        Console.WriteLine("Cache");
        result = result_1;
    }
    Console.WriteLine("Trace");
    return result;
}
`)
}

func TestWeaveEarlyReturnJumpsPastSplice(t *testing.T) {
	m := newModel(t)
	add := m.add()
	guard := override(add, cache,
		&ast.IfStatement{
			Condition: &ast.BinaryExpression{Left: ast.Ident("a"), Operator: ">", Right: ast.Int(0)},
			Then:      ast.NewBlock(ast.Return(ast.Int(1))),
		},
		ast.Return(proceed()),
	)
	outer := override(add, trace,
		&ast.LocalDeclaration{Type: "var", Name: "result", Value: proceed()},
		writeLine("Trace"),
		ast.Return(ast.Ident("result")),
	)
	m.set(add, body(ast.Return(sum())), guard, outer)
	r := woven(t, m.weave(nil), add)

	assertMember(t, r, "Add", `public int Add(int a, int b)
{
    int result;
    {
        if (a > 0)
        {
            result = 1;
            goto __aspect_return_1;
        }
        {
            result = a + b;
            goto __aspect_return_1;
        }
    }
    __aspect_return_1: ;
    Console.WriteLine("Trace");
    return result;
}
`)
}

func TestWeaveTemplateWithoutProceedStillRunsInnerChain(t *testing.T) {
	m := newModel(t)
	add := m.add()
	m.set(add, body(ast.Return(sum())), override(add, trace, writeLine("Trace"), ast.Return(ast.Int(0))))
	r := woven(t, m.weave(nil), add)

	assertMember(t, r, "Add", `public int Add(int a, int b)
{
    {
        _ = a + b;
    }
    Console.WriteLine("Trace");
    return 0;
}
`)
}

func TestWeaveDropsChainOfProceedlessTemplateWhenAllowed(t *testing.T) {
	m := newModel(t)
	add := m.add()
	m.set(add, body(ast.Return(sum())), override(add, trace, ast.Return(ast.Int(0))))
	cfg := config.Default()
	off := false
	cfg.RequireProceed = &off
	r := woven(t, m.weave(cfg), add)

	if diff := cmp.Diff([]diagnostics.ErrorCode{diagnostics.ErrW010}, codes(r.Diagnostics)); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s", diff)
	}
	if len(r.Members) != 1 {
		t.Errorf("got %d members, want the primary only", len(r.Members))
	}
}

func TestWeaveRedirectDropsInnerLinks(t *testing.T) {
	m := newModel(t)
	add := m.add()
	fast := m.declare(&symbols.Declaration{
		Name: "AddFast", Shape: symbols.ShapeValue, ReturnType: "int",
		Params: []symbols.Parameter{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
	})
	m.set(add, body(ast.Return(sum())), &transform.Redirect{Decl: add, By: trace, To: fast})
	out := m.weave(nil)
	r := woven(t, out, add)

	assertMember(t, r, "Add", `public int Add(int a, int b)
{
    return this.AddFast(a, b);
}
`)
	if diff := cmp.Diff([]diagnostics.ErrorCode{diagnostics.ErrW010}, codes(r.Diagnostics)); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s", diff)
	}
	if out.Diagnostics[0].IsError() {
		t.Errorf("unreachable link reported as an error")
	}
}

func TestWeavePartialMethodCallsRenamedImplementation(t *testing.T) {
	m := newModel(t)
	compute := m.declare(&symbols.Declaration{Name: "Compute", Partial: true, Shape: symbols.ShapeValue, ReturnType: "int"})
	m.set(compute, nil, tracing(compute, trace, "Trace"))
	r := woven(t, m.weave(nil), compute)

	assertMember(t, r, "Compute", `public int Compute()
{
    Console.WriteLine("Trace");
    return this.Compute_Source();
}
`)
	if r.SourceRenamedTo != "Compute_Source" {
		t.Errorf("SourceRenamedTo = %q", r.SourceRenamedTo)
	}
}

func TestWeaveUnrelatedTargetSkipsDeclaration(t *testing.T) {
	tests := []struct {
		name string
		sem  ast.Semantics
		want diagnostics.ErrorCode
	}{
		{"default toward unrelated type", ast.SemanticsDefault, diagnostics.ErrW002},
		{"base toward unrelated type", ast.SemanticsBase, diagnostics.ErrW003},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t)
			add := m.add()
			ping := &ast.ProceedExpression{Semantics: tt.sem, Member: m.ping, Args: []ast.Expression{}}
			m.set(add, body(ast.Return(sum())), override(add, trace, ast.ExprStmt(ping), ast.Return(proceed())))
			out := m.weave(nil)

			r := out.Result(add)
			if r.Status != weaver.StatusSkipped {
				t.Fatalf("status = %s, want skipped", r.Status)
			}
			if len(r.Members) != 0 {
				t.Errorf("skipped declaration emitted %d members", len(r.Members))
			}
			if diff := cmp.Diff([]diagnostics.ErrorCode{tt.want}, codes(r.Diagnostics)); diff != "" {
				t.Errorf("diagnostics (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWeaveUntransformedDeclarationIsUnchanged(t *testing.T) {
	m := newModel(t)
	add := m.add()
	m.set(add, body(ast.Return(sum())))
	out := m.weave(nil)
	if r := out.Result(add); r.Status != weaver.StatusUnchanged || len(r.Members) != 0 {
		t.Errorf("got status %s with %d members", r.Status, len(r.Members))
	}
	if len(out.Woven()) != 0 {
		t.Errorf("nothing should be woven")
	}
}

func TestWeaveCancelledContext(t *testing.T) {
	m := newModel(t)
	add := m.add()
	m.set(add, body(ast.Return(sum())), tracing(add, trace, "Trace"))
	m.comp.Seal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := weaver.WeaveAll(ctx, m.comp, nil, m.sets); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

func TestWeaveBaseRequestFromAnotherDeclarationKeepsHelper(t *testing.T) {
	m := newModel(t)
	add := m.add()
	peek := m.declare(&symbols.Declaration{Name: "Peek", Shape: symbols.ShapeValue, ReturnType: "int"})
	base := &ast.ProceedExpression{Semantics: ast.SemanticsBase, Member: add, Args: []ast.Expression{ast.Int(1), ast.Int(2)}}
	m.set(add, body(ast.Return(sum())), tracing(add, trace, "Trace"))
	m.set(peek, body(ast.Return(ast.Int(0))), override(peek, trace, ast.ExprStmt(base), ast.Return(proceed())))
	out := m.weave(nil)

	r := woven(t, out, add)
	assertMember(t, r, "Add", `public int Add(int a, int b)
{
    Console.WriteLine("Trace");
    return this.Add_Source(a, b);
}
`)
	assertMember(t, r, "Add_Source", `private int Add_Source(int a, int b)
{
    return a + b;
}
`)
	if diff := cmp.Diff([]string(nil), r.Inlined); diff != "" {
		t.Errorf("inlined (-want +got):\n%s", diff)
	}
	assertMember(t, woven(t, out, peek), "Peek", `public int Peek()
{
    this.Add_Source(1, 2);
    {
        return 0;
    }
}
`)
}
