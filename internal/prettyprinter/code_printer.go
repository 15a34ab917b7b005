package prettyprinter

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/funvibe/weaver/internal/ast"
)

// --- Code Printer (output looks like C# source) ---

// Operator precedence (higher = binds tighter)
var operatorPrecedence = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"|":  4,
	"^":  5,
	"&":  6,
	"==": 7,
	"!=": 7,
	"<":  8,
	">":  8,
	"<=": 8,
	">=": 8,
	"+":  10,
	"-":  10,
	"*":  11,
	"/":  11,
	"%":  11,
}

const (
	precAssign = 0
	precUnary  = 12
	precAtom   = 13
)

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return 9 // Unknown binary operators sit between comparison and additive
}

type CodePrinter struct {
	buf    bytes.Buffer
	indent int
	column int // current column position
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	if p.column == 0 && s != "" && s != "\n" {
		p.writeIndent()
	}
	p.buf.WriteString(s)
	if idx := strings.LastIndex(s, "\n"); idx != -1 {
		p.column = len(s) - idx - 1
	} else {
		p.column += len(s)
	}
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
	p.column = p.indent * 4
}

func (p *CodePrinter) writeln() {
	p.buf.WriteString("\n")
	p.column = 0
}

// PrintBlock renders a body on its own.
func PrintBlock(b *ast.Block) string {
	p := NewCodePrinter()
	p.VisitBlock(b)
	return p.String()
}

// PrintExpression renders one expression.
func PrintExpression(e ast.Expression) string {
	p := NewCodePrinter()
	p.printExpr(e, precAssign)
	return p.String()
}

// printExpr prints an expression, adding parentheses only if needed
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int) {
	if expr == nil {
		p.write("<???>")
		return
	}
	prec := exprPrecedence(expr)
	if prec < parentPrec {
		p.write("(")
		expr.Accept(p)
		p.write(")")
		return
	}
	expr.Accept(p)
}

func exprPrecedence(e ast.Expression) int {
	switch e := e.(type) {
	case *ast.Assignment:
		return precAssign
	case *ast.BinaryExpression:
		return getPrecedence(e.Operator)
	case *ast.UnaryExpression, *ast.AwaitExpression:
		return precUnary
	}
	return precAtom
}

func (p *CodePrinter) printStatement(s ast.Statement) {
	if s == nil {
		p.write("<???>;")
		p.writeln()
		return
	}
	s.Accept(p)
}

// --- Statements ---

func (p *CodePrinter) VisitBlock(b *ast.Block) {
	p.write("{")
	p.writeln()
	p.indent++
	if b != nil {
		for _, s := range b.Statements {
			p.printStatement(s)
		}
	}
	p.indent--
	p.write("}")
	p.writeln()
}

func (p *CodePrinter) VisitLocalDeclaration(s *ast.LocalDeclaration) {
	p.write(s.Type + " " + s.Name)
	if s.Value != nil {
		p.write(" = ")
		p.printExpr(s.Value, precAssign)
	}
	p.write(";")
	p.writeln()
}

func (p *CodePrinter) VisitExpressionStatement(s *ast.ExpressionStatement) {
	p.printExpr(s.Expression, precAssign)
	p.write(";")
	p.writeln()
}

func (p *CodePrinter) VisitReturnStatement(s *ast.ReturnStatement) {
	if s.Value == nil {
		p.write("return;")
	} else {
		p.write("return ")
		p.printExpr(s.Value, precAssign)
		p.write(";")
	}
	p.writeln()
}

func (p *CodePrinter) VisitIfStatement(s *ast.IfStatement) {
	p.write("if (")
	p.printExpr(s.Condition, precAssign)
	p.write(")")
	p.writeln()
	p.VisitBlock(s.Then)
	if s.Else != nil {
		p.write("else")
		p.writeln()
		p.VisitBlock(s.Else)
	}
}

func (p *CodePrinter) VisitWhileStatement(s *ast.WhileStatement) {
	p.write("while (")
	p.printExpr(s.Condition, precAssign)
	p.write(")")
	p.writeln()
	p.VisitBlock(s.Body)
}

func (p *CodePrinter) VisitForEachStatement(s *ast.ForEachStatement) {
	if s.Await {
		p.write("await ")
	}
	p.write("foreach (" + s.Type + " " + s.Name + " in ")
	p.printExpr(s.Collection, precAssign)
	p.write(")")
	p.writeln()
	p.VisitBlock(s.Body)
}

func (p *CodePrinter) VisitLabeledStatement(s *ast.LabeledStatement) {
	p.write(s.Label + ":")
	if _, empty := s.Statement.(*ast.EmptyStatement); empty || s.Statement == nil {
		p.write(" ;")
		p.writeln()
		return
	}
	p.writeln()
	p.printStatement(s.Statement)
}

func (p *CodePrinter) VisitGotoStatement(s *ast.GotoStatement) {
	p.write("goto " + s.Label + ";")
	p.writeln()
}

func (p *CodePrinter) VisitYieldReturnStatement(s *ast.YieldReturnStatement) {
	p.write("yield return ")
	p.printExpr(s.Value, precAssign)
	p.write(";")
	p.writeln()
}

func (p *CodePrinter) VisitYieldBreakStatement(s *ast.YieldBreakStatement) {
	p.write("yield break;")
	p.writeln()
}

func (p *CodePrinter) VisitEmptyStatement(s *ast.EmptyStatement) {
	p.write(";")
	p.writeln()
}

// --- Expressions ---

func (p *CodePrinter) VisitIdentifier(e *ast.Identifier) {
	p.write(e.Name)
}

func (p *CodePrinter) VisitStringLiteral(e *ast.StringLiteral) {
	p.write(strconv.Quote(e.Value))
}

func (p *CodePrinter) VisitIntegerLiteral(e *ast.IntegerLiteral) {
	p.write(strconv.FormatInt(e.Value, 10))
}

func (p *CodePrinter) VisitBooleanLiteral(e *ast.BooleanLiteral) {
	p.write(strconv.FormatBool(e.Value))
}

func (p *CodePrinter) VisitNullLiteral(e *ast.NullLiteral) {
	p.write("null")
}

func (p *CodePrinter) VisitThisExpression(e *ast.ThisExpression) {
	p.write("this")
}

func (p *CodePrinter) VisitBaseExpression(e *ast.BaseExpression) {
	p.write("base")
}

func (p *CodePrinter) VisitTypeName(e *ast.TypeName) {
	p.write(e.Name)
}

func (p *CodePrinter) VisitMemberAccess(e *ast.MemberAccess) {
	p.printExpr(e.Object, precAtom)
	p.write("." + e.Member)
}

func (p *CodePrinter) VisitInvocation(e *ast.Invocation) {
	p.printExpr(e.Function, precAtom)
	p.write("(")
	for i, a := range e.Args {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(a, precAssign)
	}
	p.write(")")
}

func (p *CodePrinter) VisitAssignment(e *ast.Assignment) {
	p.printExpr(e.Target, precUnary)
	p.write(" " + e.Operator + " ")
	p.printExpr(e.Value, precAssign)
}

func (p *CodePrinter) VisitBinaryExpression(e *ast.BinaryExpression) {
	prec := getPrecedence(e.Operator)
	p.printExpr(e.Left, prec)
	p.write(" " + e.Operator + " ")
	// Binary operators are left-associative: a right operand of equal
	// precedence needs parentheses.
	p.printExpr(e.Right, prec+1)
}

func (p *CodePrinter) VisitUnaryExpression(e *ast.UnaryExpression) {
	p.write(e.Operator)
	p.printExpr(e.Operand, precUnary)
}

func (p *CodePrinter) VisitAwaitExpression(e *ast.AwaitExpression) {
	p.write("await ")
	p.printExpr(e.Value, precUnary)
}

func (p *CodePrinter) VisitDefaultExpression(e *ast.DefaultExpression) {
	if e.Type == "" {
		p.write("default")
		return
	}
	p.write("default(" + e.Type + ")")
}

// VisitProceedExpression prints an unresolved request the way templates
// spell it.
func (p *CodePrinter) VisitProceedExpression(e *ast.ProceedExpression) {
	if e.Receiver != nil {
		p.printExpr(e.Receiver, precAtom)
		p.write(".")
	}
	p.write("meta.Proceed")
	if e.Kind != ast.ProceedDefault {
		p.write("<" + e.Kind.String() + ">")
	}
	p.write("[" + e.Semantics.String())
	if e.Member != 0 {
		p.write(" #" + strconv.Itoa(int(e.Member)))
	}
	p.write(" " + e.Accessor.String() + "](")
	for i, a := range e.Args {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(a, precAssign)
	}
	p.write(")")
}
