package ast_test

import (
	"testing"

	"github.com/funvibe/weaver/internal/ast"
)

// body is
//
//	var r = proceed();
//	if (r > 0) { return proceed.base(r); }
//	return r;
func body() *ast.Block {
	return ast.NewBlock(
		&ast.LocalDeclaration{Type: "var", Name: "r", Value: &ast.ProceedExpression{}},
		&ast.IfStatement{
			Condition: &ast.BinaryExpression{Operator: ">", Left: ast.Ident("r"), Right: ast.Int(0)},
			Then:      ast.NewBlock(ast.Return(&ast.ProceedExpression{Semantics: ast.SemanticsBase, Args: []ast.Expression{ast.Ident("r")}})),
		},
		ast.Return(ast.Ident("r")),
	)
}

func TestDump(t *testing.T) {
	want := `(block (local "var" "r" (proceed "default" "default" 0 body nil)) ` +
		`(if (binary ">" (id "r") (int 0)) (block (return (proceed "base" "default" 0 body nil (args (id "r"))))) nil) ` +
		`(return (id "r")))`
	if got := ast.Dump(body()); got != want {
		t.Errorf("Dump =\n%s\nwant\n%s", got, want)
	}

	spliced := &ast.Block{Splice: &ast.Splice{Origin: "Add_Source"}, Statements: []ast.Statement{
		&ast.LabeledStatement{Label: "__aspect_return_1"},
		&ast.GotoStatement{Label: "__aspect_return_1", Up: 1},
	}}
	want = `(block "splice:Add_Source" (label "__aspect_return_1" nil) (goto "__aspect_return_1" ^1))`
	if got := ast.Dump(spliced); got != want {
		t.Errorf("Dump =\n%s\nwant\n%s", got, want)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := body()
	before := ast.Dump(orig)
	clone := ast.CloneBlock(orig)
	if ast.Dump(clone) != before {
		t.Fatalf("clone differs:\n%s\n%s", ast.Dump(clone), before)
	}

	ast.Lift(clone.Statements[2].(*ast.ReturnStatement).Value, 2)
	ast.Proceeds(clone)[1].Args[0] = ast.Int(7)
	clone.Statements = clone.Statements[:1]
	if got := ast.Dump(orig); got != before {
		t.Errorf("editing the clone changed the original:\n%s", got)
	}
	if ast.CloneBlock(nil) != nil {
		t.Error("clone of a nil block")
	}
}

func TestQueries(t *testing.T) {
	b := body()
	ps := ast.Proceeds(b)
	if len(ps) != 2 || ps[0].Semantics != ast.SemanticsDefault || ps[1].Semantics != ast.SemanticsBase {
		t.Fatalf("Proceeds = %v", ps)
	}
	if !ps[0].ImplicitReceiver() {
		t.Error("a proceed without receiver targets this")
	}
	if (&ast.ProceedExpression{Receiver: ast.Ident("other")}).ImplicitReceiver() {
		t.Error("a proceed on another receiver does not target this")
	}
	if ast.ContainsYield(b) || ast.ContainsAwait(b) {
		t.Error("plain body reported as iterator or async")
	}

	iter := ast.NewBlock(&ast.WhileStatement{
		Condition: &ast.BooleanLiteral{Value: true},
		Body:      ast.NewBlock(&ast.YieldBreakStatement{}),
	})
	if !ast.ContainsYield(iter) {
		t.Error("nested yield break not found")
	}
	loop := ast.NewBlock(&ast.ForEachStatement{Await: true, Type: "var", Name: "x", Collection: ast.Ident("xs"), Body: ast.NewBlock()})
	if !ast.ContainsAwait(loop) {
		t.Error("await foreach not found")
	}
}

func TestRewriteExpressions(t *testing.T) {
	b := body()
	n := 0
	ast.RewriteExpressions(b, func(e ast.Expression) ast.Expression {
		if _, ok := e.(*ast.ProceedExpression); ok {
			n++
			return ast.Call(ast.Member(&ast.ThisExpression{}, "Add_Source"))
		}
		return e
	})
	if n != 2 || len(ast.Proceeds(b)) != 0 {
		t.Fatalf("rewrote %d requests, %d left", n, len(ast.Proceeds(b)))
	}
	want := `(local "var" "r" (call (member (this) "Add_Source")))`
	if got := ast.Dump(b.Statements[0]); got != want {
		t.Errorf("rewritten declaration = %s", got)
	}
}

func TestRewriteStatements(t *testing.T) {
	b := body()
	ast.RewriteStatements(b, func(s ast.Statement) ([]ast.Statement, bool) {
		r, ok := s.(*ast.ReturnStatement)
		if !ok {
			return nil, false
		}
		return []ast.Statement{
			ast.ExprStmt(ast.Assign(ast.Ident("result"), "=", r.Value)),
			&ast.GotoStatement{Label: "done"},
		}, true
	})
	if len(b.Statements) != 4 {
		t.Fatalf("got %d statements, want 4", len(b.Statements))
	}
	then := b.Statements[1].(*ast.IfStatement).Then
	want := `(block (expr (assign "=" (id "result") (proceed "base" "default" 0 body nil (args (id "r"))))) (goto "done"))`
	if got := ast.Dump(then); got != want {
		t.Errorf("nested block = %s", got)
	}

	labeled := ast.NewBlock(&ast.LabeledStatement{Label: "l", Statement: ast.Return(nil)})
	ast.RewriteStatements(labeled, func(s ast.Statement) ([]ast.Statement, bool) {
		if _, ok := s.(*ast.ReturnStatement); ok {
			return nil, true
		}
		return nil, false
	})
	if got := ast.Dump(labeled); got != `(block (label "l" (empty)))` {
		t.Errorf("labeled statement = %s", got)
	}
}

func TestParseNames(t *testing.T) {
	for _, s := range []ast.Semantics{ast.SemanticsDefault, ast.SemanticsBase, ast.SemanticsCurrent, ast.SemanticsFinal} {
		if got, ok := ast.ParseSemantics(s.String()); !ok || got != s {
			t.Errorf("ParseSemantics(%q) = %v, %v", s.String(), got, ok)
		}
	}
	for _, k := range []ast.ProceedKind{ast.ProceedDefault, ast.ProceedAsync, ast.ProceedEnumerable, ast.ProceedAsyncEnumerable} {
		if got, ok := ast.ParseProceedKind(k.String()); !ok || got != k {
			t.Errorf("ParseProceedKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ast.ParseSemantics("virtual"); ok {
		t.Error("unknown semantics accepted")
	}
	if _, ok := ast.ParseProceedKind("stream"); ok {
		t.Error("unknown proceed kind accepted")
	}
}
