package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders n as a compact S-expression. The form is stable and is used
// for fingerprints and test comparisons, not for display.
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n)
	return sb.String()
}

func dump(sb *strings.Builder, n Node) {
	open := func(tag string) { sb.WriteString("(" + tag) }
	child := func(c Node) {
		sb.WriteByte(' ')
		if c == nil || isNilNode(c) {
			sb.WriteString("nil")
			return
		}
		dump(sb, c)
	}
	atom := func(s string) { sb.WriteString(" " + strconv.Quote(s)) }
	switch n := n.(type) {
	case *Block:
		open("block")
		if n.Splice != nil {
			atom("splice:" + n.Splice.Origin)
		}
		for _, s := range n.Statements {
			child(s)
		}
	case *LocalDeclaration:
		open("local")
		atom(n.Type)
		atom(n.Name)
		child(n.Value)
	case *ExpressionStatement:
		open("expr")
		child(n.Expression)
	case *ReturnStatement:
		open("return")
		child(n.Value)
	case *IfStatement:
		open("if")
		child(n.Condition)
		child(n.Then)
		child(n.Else)
	case *WhileStatement:
		open("while")
		child(n.Condition)
		child(n.Body)
	case *ForEachStatement:
		open("foreach")
		if n.Await {
			atom("await")
		}
		atom(n.Type)
		atom(n.Name)
		child(n.Collection)
		child(n.Body)
	case *LabeledStatement:
		open("label")
		atom(n.Label)
		child(n.Statement)
	case *GotoStatement:
		open("goto")
		atom(n.Label)
		if n.Up > 0 {
			sb.WriteString(fmt.Sprintf(" ^%d", n.Up))
		}
	case *YieldReturnStatement:
		open("yield")
		child(n.Value)
	case *YieldBreakStatement:
		open("yield-break")
	case *EmptyStatement:
		open("empty")
	case *Identifier:
		open("id")
		atom(n.Name)
		if n.Up > 0 {
			sb.WriteString(fmt.Sprintf(" ^%d", n.Up))
		}
	case *StringLiteral:
		open("str")
		atom(n.Value)
	case *IntegerLiteral:
		open("int")
		sb.WriteString(" " + strconv.FormatInt(n.Value, 10))
	case *BooleanLiteral:
		open("bool")
		sb.WriteString(" " + strconv.FormatBool(n.Value))
	case *NullLiteral:
		open("null")
	case *ThisExpression:
		open("this")
	case *BaseExpression:
		open("base")
	case *TypeName:
		open("type")
		atom(n.Name)
	case *MemberAccess:
		open("member")
		child(n.Object)
		atom(n.Member)
	case *Invocation:
		open("call")
		child(n.Function)
		for _, a := range n.Args {
			child(a)
		}
	case *Assignment:
		open("assign")
		atom(n.Operator)
		child(n.Target)
		child(n.Value)
	case *BinaryExpression:
		open("binary")
		atom(n.Operator)
		child(n.Left)
		child(n.Right)
	case *UnaryExpression:
		open("unary")
		atom(n.Operator)
		child(n.Operand)
	case *AwaitExpression:
		open("await")
		child(n.Value)
	case *DefaultExpression:
		open("default")
		atom(n.Type)
	case *ProceedExpression:
		open("proceed")
		atom(n.Semantics.String())
		atom(n.Kind.String())
		sb.WriteString(fmt.Sprintf(" %d %s", n.Member, n.Accessor))
		child(n.Receiver)
		if n.Args != nil {
			sb.WriteString(" (args")
			for _, a := range n.Args {
				child(a)
			}
			sb.WriteString(")")
		}
	default:
		open(fmt.Sprintf("unknown %T", n))
	}
	sb.WriteString(")")
}

// isNilNode catches an absent block stored in a Node.
func isNilNode(n Node) bool {
	b, ok := n.(*Block)
	return ok && b == nil
}
