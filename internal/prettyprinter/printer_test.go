package prettyprinter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/weaver"
)

func bin(op string, l, r ast.Expression) *ast.BinaryExpression {
	return &ast.BinaryExpression{Operator: op, Left: l, Right: r}
}

func TestPrintExpression(t *testing.T) {
	a, b, c := ast.Ident("a"), ast.Ident("b"), ast.Ident("c")
	tests := []struct {
		name string
		e    ast.Expression
		want string
	}{
		{"lower_left", bin("*", bin("+", a, b), c), "(a + b) * c"},
		{"left_assoc", bin("-", bin("-", a, b), c), "a - b - c"},
		{"equal_right", bin("-", a, bin("-", b, c)), "a - (b - c)"},
		{"unary", &ast.UnaryExpression{Operator: "!", Operand: bin("&&", a, b)}, "!(a && b)"},
		{"assign", ast.Assign(ast.Ident("x"), "+=", bin("??", a, b)), "x += a ?? b"},
		{"await", &ast.AwaitExpression{Value: ast.Call(ast.Member(&ast.ThisExpression{}, "Load"), ast.Int(1))}, "await this.Load(1)"},
		{"member_of_binary", ast.Member(bin("+", a, b), "Length"), "(a + b).Length"},
		{"default_typed", &ast.DefaultExpression{Type: "int"}, "default(int)"},
		{"default", &ast.DefaultExpression{}, "default"},
		{"string", ast.Str(`say "hi"`), `"say \"hi\""`},
		{"literals", ast.Call(ast.Member(&ast.BaseExpression{}, "Save"), &ast.NullLiteral{}, &ast.BooleanLiteral{Value: true}), "base.Save(null, true)"},
		{"proceed", &ast.ProceedExpression{Semantics: ast.SemanticsBase, Args: []ast.Expression{a}}, "meta.Proceed[base body](a)"},
		{"proceed_member", &ast.ProceedExpression{Receiver: ast.Ident("other"), Member: 3, Accessor: symbols.AccessorGet}, "other.meta.Proceed[default #3 get]()"},
		{"nil", nil, "<???>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrintExpression(tt.e); got != tt.want {
				t.Errorf("PrintExpression = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintBlock(t *testing.T) {
	b := ast.NewBlock(
		&ast.LocalDeclaration{Type: "var", Name: "r", Value: &ast.ProceedExpression{}},
		&ast.IfStatement{
			Condition: bin(">", ast.Ident("r"), ast.Int(0)),
			Then:      ast.NewBlock(ast.Return(ast.Ident("r"))),
			Else:      ast.NewBlock(&ast.GotoStatement{Label: "done"}),
		},
		&ast.ForEachStatement{Await: true, Type: "var", Name: "x", Collection: ast.Ident("xs"), Body: ast.NewBlock(
			&ast.YieldReturnStatement{Value: ast.Ident("x")},
		)},
		&ast.LabeledStatement{Label: "done", Statement: &ast.EmptyStatement{}},
		ast.Return(nil),
	)
	want := `{
    var r = meta.Proceed[default body]();
    if (r > 0)
    {
        return r;
    }
    else
    {
        goto done;
    }
    await foreach (var x in xs)
    {
        yield return x;
    }
    done: ;
    return;
}
`
	if diff := cmp.Diff(want, PrintBlock(b)); diff != "" {
		t.Errorf("PrintBlock (-want +got):\n%s", diff)
	}
}

func add() *weaver.EmittedMember {
	return &weaver.EmittedMember{
		Name:       "Add",
		Kind:       symbols.MethodDecl,
		Visibility: "public",
		Override:   true,
		ReturnType: "int",
		Params:     []symbols.Parameter{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
		Bodies:     map[symbols.AccessorKind]*ast.Block{symbols.AccessorBody: ast.NewBlock(ast.Return(bin("+", ast.Ident("a"), ast.Ident("b"))))},
	}
}

func TestPrintMember(t *testing.T) {
	field := ast.Member(&ast.ThisExpression{}, "_name")
	tests := []struct {
		name string
		m    *weaver.EmittedMember
		want string
	}{
		{"method", add(), `public override int Add(int a, int b)
{
    return a + b;
}
`},
		{"property", &weaver.EmittedMember{
			Name: "Name", Kind: symbols.PropertyDecl, Visibility: "public", ReturnType: "string",
			Bodies: map[symbols.AccessorKind]*ast.Block{
				symbols.AccessorSet: ast.NewBlock(ast.ExprStmt(ast.Assign(field, "=", ast.Ident("value")))),
				symbols.AccessorGet: ast.NewBlock(ast.Return(field)),
			},
		}, `public string Name
{
    get
    {
        return this._name;
    }
    set
    {
        this._name = value;
    }
}
`},
		{"backing_field", &weaver.EmittedMember{Name: "_name", Role: weaver.RoleBackingField, Visibility: "private", ReturnType: "string"},
			"private string _name;\n"},
		{"proxy", &weaver.EmittedMember{
			Name: "Add", Role: weaver.RoleProxy, Kind: symbols.MethodDecl, Interface: "ICalc", Visibility: "public", ReturnType: "int",
			Params: []symbols.Parameter{{Name: "a", Type: "int"}},
			Bodies: map[symbols.AccessorKind]*ast.Block{symbols.AccessorBody: ast.NewBlock(ast.Return(ast.Call(ast.Member(&ast.ThisExpression{}, "Add"), ast.Ident("a"))))},
		}, `int ICalc.Add(int a)
{
    return this.Add(a);
}
`},
		{"static_async", &weaver.EmittedMember{
			Name: "Run", Kind: symbols.MethodDecl, Visibility: "private", Static: true, Async: true, ReturnType: "Task",
			Bodies: map[symbols.AccessorKind]*ast.Block{symbols.AccessorBody: ast.NewBlock()},
		}, "private static async Task Run()\n{\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, PrintMember(tt.m)); diff != "" {
				t.Errorf("PrintMember (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrintResult(t *testing.T) {
	r := &weaver.WeavingResult{Qualified: "Calc.Add", Status: weaver.StatusWoven, SourceRenamedTo: "Add_Source", Members: []*weaver.EmittedMember{add()}}
	want := `// Calc.Add: woven
// implementation part renamed to Add_Source
public override int Add(int a, int b)
{
    return a + b;
}
`
	if diff := cmp.Diff(want, PrintResult(r)); diff != "" {
		t.Errorf("PrintResult (-want +got):\n%s", diff)
	}
}

func TestPrintOutputGroupsByType(t *testing.T) {
	out := &weaver.Output{Results: []*weaver.WeavingResult{
		{Type: "Zeta", Status: weaver.StatusWoven, Members: []*weaver.EmittedMember{
			{Name: "_name", Role: weaver.RoleBackingField, Visibility: "private", ReturnType: "string"},
		}},
		{Type: "Calc", Status: weaver.StatusWoven, Members: []*weaver.EmittedMember{add()}},
		{Type: "Calc", Status: weaver.StatusUnchanged, Members: []*weaver.EmittedMember{{Name: "Reset", ReturnType: "void"}}},
	}}
	want := `partial class Calc
{
    public override int Add(int a, int b)
    {
        return a + b;
    }
}

partial class Zeta
{
    private string _name;
}
`
	if diff := cmp.Diff(want, PrintOutput(out)); diff != "" {
		t.Errorf("PrintOutput (-want +got):\n%s", diff)
	}
}
