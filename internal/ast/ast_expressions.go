package ast

import "github.com/funvibe/weaver/internal/symbols"

// Identifier references a local, a parameter or an implicit member.
// Up counts the splice boundaries the reference crosses outward before its
// binding scope; references written by template authors have Up == 0.
type Identifier struct {
	Name string
	Up   int
}

func (e *Identifier) Accept(v Visitor) { v.VisitIdentifier(e) }
func (e *Identifier) expressionNode()  {}

type StringLiteral struct {
	Value string
}

func (e *StringLiteral) Accept(v Visitor) { v.VisitStringLiteral(e) }
func (e *StringLiteral) expressionNode()  {}

type IntegerLiteral struct {
	Value int64
}

func (e *IntegerLiteral) Accept(v Visitor) { v.VisitIntegerLiteral(e) }
func (e *IntegerLiteral) expressionNode()  {}

type BooleanLiteral struct {
	Value bool
}

func (e *BooleanLiteral) Accept(v Visitor) { v.VisitBooleanLiteral(e) }
func (e *BooleanLiteral) expressionNode()  {}

type NullLiteral struct{}

func (e *NullLiteral) Accept(v Visitor) { v.VisitNullLiteral(e) }
func (e *NullLiteral) expressionNode()  {}

type ThisExpression struct{}

func (e *ThisExpression) Accept(v Visitor) { v.VisitThisExpression(e) }
func (e *ThisExpression) expressionNode()  {}

// BaseExpression is the `base` receiver: a non-virtual call into the base type.
type BaseExpression struct{}

func (e *BaseExpression) Accept(v Visitor) { v.VisitBaseExpression(e) }
func (e *BaseExpression) expressionNode()  {}

// TypeName is a type used as the receiver of a static member access.
type TypeName struct {
	Name string
}

func (e *TypeName) Accept(v Visitor) { v.VisitTypeName(e) }
func (e *TypeName) expressionNode()  {}

type MemberAccess struct {
	Object Expression
	Member string
}

func (e *MemberAccess) Accept(v Visitor) { v.VisitMemberAccess(e) }
func (e *MemberAccess) expressionNode()  {}

type Invocation struct {
	Function Expression
	Args     []Expression
}

func (e *Invocation) Accept(v Visitor) { v.VisitInvocation(e) }
func (e *Invocation) expressionNode()  {}

// Assignment is `target op value` with op one of "=", "+=", "-=".
type Assignment struct {
	Target   Expression
	Operator string
	Value    Expression
}

func (e *Assignment) Accept(v Visitor) { v.VisitAssignment(e) }
func (e *Assignment) expressionNode()  {}

type BinaryExpression struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (e *BinaryExpression) Accept(v Visitor) { v.VisitBinaryExpression(e) }
func (e *BinaryExpression) expressionNode()  {}

type UnaryExpression struct {
	Operator string
	Operand  Expression
}

func (e *UnaryExpression) Accept(v Visitor) { v.VisitUnaryExpression(e) }
func (e *UnaryExpression) expressionNode()  {}

type AwaitExpression struct {
	Value Expression
}

func (e *AwaitExpression) Accept(v Visitor) { v.VisitAwaitExpression(e) }
func (e *AwaitExpression) expressionNode()  {}

// DefaultExpression is `default(T)`, or `default` when Type is empty.
type DefaultExpression struct {
	Type string
}

func (e *DefaultExpression) Accept(v Visitor) { v.VisitDefaultExpression(e) }
func (e *DefaultExpression) expressionNode()  {}

// Semantics selects which version of a member an invoke request reaches.
type Semantics int

const (
	SemanticsDefault Semantics = iota
	SemanticsBase
	SemanticsCurrent
	SemanticsFinal
)

var semanticsNames = [...]string{"default", "base", "current", "final"}

func (s Semantics) String() string {
	if int(s) < len(semanticsNames) {
		return semanticsNames[s]
	}
	return "unknown"
}

func ParseSemantics(s string) (Semantics, bool) {
	if s == "" {
		return SemanticsDefault, true
	}
	for i, n := range semanticsNames {
		if n == s {
			return Semantics(i), true
		}
	}
	return SemanticsDefault, false
}

// ProceedKind distinguishes the default proceed from templates authored to
// consume the inner link in a specific shape.
type ProceedKind int

const (
	ProceedDefault ProceedKind = iota
	ProceedAsync               // The task itself, not awaited
	ProceedEnumerable          // The lazy sequence, not buffered
	ProceedAsyncEnumerable     // The lazy async sequence, not buffered
)

var proceedKindNames = [...]string{"default", "async", "enumerable", "async-enumerable"}

func (k ProceedKind) String() string {
	if int(k) < len(proceedKindNames) {
		return proceedKindNames[k]
	}
	return "unknown"
}

func ParseProceedKind(s string) (ProceedKind, bool) {
	if s == "" {
		return ProceedDefault, true
	}
	for i, n := range proceedKindNames {
		if n == s {
			return ProceedKind(i), true
		}
	}
	return ProceedDefault, false
}

// ProceedExpression is an invoke request left in a candidate body by the
// template expander. The weaver replaces every one of them.
type ProceedExpression struct {
	Semantics Semantics
	Kind      ProceedKind
	Member    symbols.DeclID       // NoDecl targets the declaration being woven
	Accessor  symbols.AccessorKind // Accessor of Member to invoke
	Receiver  Expression           // nil for the implicit this (or the type, for statics)
	Args      []Expression         // nil forwards the declaration's parameters
}

func (e *ProceedExpression) Accept(v Visitor) { v.VisitProceedExpression(e) }
func (e *ProceedExpression) expressionNode()  {}

// ImplicitReceiver reports whether the request targets this.
func (e *ProceedExpression) ImplicitReceiver() bool {
	if e.Receiver == nil {
		return true
	}
	_, ok := e.Receiver.(*ThisExpression)
	return ok
}
