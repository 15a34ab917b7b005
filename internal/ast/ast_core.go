// Package ast defines the body representation shared by the weaver stages:
// candidate bodies produced by the template expander, original declaration
// bodies, and the merged bodies handed to the emitter.
package ast

// Node is the base interface for all AST nodes.
type Node interface {
	Accept(v Visitor)
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Visitor is implemented by passes that need to see every node kind, such as
// the code printer.
type Visitor interface {
	VisitBlock(b *Block)
	VisitLocalDeclaration(s *LocalDeclaration)
	VisitExpressionStatement(s *ExpressionStatement)
	VisitReturnStatement(s *ReturnStatement)
	VisitIfStatement(s *IfStatement)
	VisitWhileStatement(s *WhileStatement)
	VisitForEachStatement(s *ForEachStatement)
	VisitLabeledStatement(s *LabeledStatement)
	VisitGotoStatement(s *GotoStatement)
	VisitYieldReturnStatement(s *YieldReturnStatement)
	VisitYieldBreakStatement(s *YieldBreakStatement)
	VisitEmptyStatement(s *EmptyStatement)

	VisitIdentifier(e *Identifier)
	VisitStringLiteral(e *StringLiteral)
	VisitIntegerLiteral(e *IntegerLiteral)
	VisitBooleanLiteral(e *BooleanLiteral)
	VisitNullLiteral(e *NullLiteral)
	VisitThisExpression(e *ThisExpression)
	VisitBaseExpression(e *BaseExpression)
	VisitTypeName(e *TypeName)
	VisitMemberAccess(e *MemberAccess)
	VisitInvocation(e *Invocation)
	VisitAssignment(e *Assignment)
	VisitBinaryExpression(e *BinaryExpression)
	VisitUnaryExpression(e *UnaryExpression)
	VisitAwaitExpression(e *AwaitExpression)
	VisitDefaultExpression(e *DefaultExpression)
	VisitProceedExpression(e *ProceedExpression)
}

// Splice marks a block whose statements were inlined from another link.
// Local names inside a splice do not see locals of the enclosing body.
type Splice struct {
	Origin string // Name of the link the statements came from
}

// Block is a braced statement list, and the root of every body.
type Block struct {
	Statements []Statement
	Splice     *Splice
}

func (b *Block) Accept(v Visitor) { v.VisitBlock(b) }
func (b *Block) statementNode()   {}

// NewBlock builds a block from statements.
func NewBlock(stmts ...Statement) *Block {
	return &Block{Statements: stmts}
}
