package ast

// LocalDeclaration declares a local variable.
// var result = expr; or int result;
type LocalDeclaration struct {
	Type  string // "var" or an explicit type name
	Name  string
	Value Expression // Optional
}

func (s *LocalDeclaration) Accept(v Visitor) { v.VisitLocalDeclaration(s) }
func (s *LocalDeclaration) statementNode()   {}

type ExpressionStatement struct {
	Expression Expression
}

func (s *ExpressionStatement) Accept(v Visitor) { v.VisitExpressionStatement(s) }
func (s *ExpressionStatement) statementNode()   {}

type ReturnStatement struct {
	Value Expression // nil for a bare return
}

func (s *ReturnStatement) Accept(v Visitor) { v.VisitReturnStatement(s) }
func (s *ReturnStatement) statementNode()   {}

type IfStatement struct {
	Condition Expression
	Then      *Block
	Else      *Block // Optional
}

func (s *IfStatement) Accept(v Visitor) { v.VisitIfStatement(s) }
func (s *IfStatement) statementNode()   {}

type WhileStatement struct {
	Condition Expression
	Body      *Block
}

func (s *WhileStatement) Accept(v Visitor) { v.VisitWhileStatement(s) }
func (s *WhileStatement) statementNode()   {}

// ForEachStatement iterates a sequence; Await marks `await foreach`.
type ForEachStatement struct {
	Type       string
	Name       string
	Collection Expression
	Body       *Block
	Await      bool
}

func (s *ForEachStatement) Accept(v Visitor) { v.VisitForEachStatement(s) }
func (s *ForEachStatement) statementNode()   {}

type LabeledStatement struct {
	Label     string
	Statement Statement
}

func (s *LabeledStatement) Accept(v Visitor) { v.VisitLabeledStatement(s) }
func (s *LabeledStatement) statementNode()   {}

// GotoStatement jumps to a label. Up counts the splice boundaries between the
// goto and the block that declares the label.
type GotoStatement struct {
	Label string
	Up    int
}

func (s *GotoStatement) Accept(v Visitor) { v.VisitGotoStatement(s) }
func (s *GotoStatement) statementNode()   {}

type YieldReturnStatement struct {
	Value Expression
}

func (s *YieldReturnStatement) Accept(v Visitor) { v.VisitYieldReturnStatement(s) }
func (s *YieldReturnStatement) statementNode()   {}

type YieldBreakStatement struct{}

func (s *YieldBreakStatement) Accept(v Visitor) { v.VisitYieldBreakStatement(s) }
func (s *YieldBreakStatement) statementNode()   {}

type EmptyStatement struct{}

func (s *EmptyStatement) Accept(v Visitor) { v.VisitEmptyStatement(s) }
func (s *EmptyStatement) statementNode()   {}
