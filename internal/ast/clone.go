package ast

// CloneBlock returns a deep copy of b. Templates are cloned before weaving so
// that transformations are never mutated.
func CloneBlock(b *Block) *Block {
	if b == nil {
		return nil
	}
	out := &Block{Statements: make([]Statement, len(b.Statements))}
	if b.Splice != nil {
		sp := *b.Splice
		out.Splice = &sp
	}
	for i, s := range b.Statements {
		out.Statements[i] = CloneStatement(s)
	}
	return out
}

func CloneStatement(s Statement) Statement {
	switch s := s.(type) {
	case nil:
		return nil
	case *Block:
		return CloneBlock(s)
	case *LocalDeclaration:
		return &LocalDeclaration{Type: s.Type, Name: s.Name, Value: CloneExpression(s.Value)}
	case *ExpressionStatement:
		return &ExpressionStatement{Expression: CloneExpression(s.Expression)}
	case *ReturnStatement:
		return &ReturnStatement{Value: CloneExpression(s.Value)}
	case *IfStatement:
		return &IfStatement{Condition: CloneExpression(s.Condition), Then: CloneBlock(s.Then), Else: CloneBlock(s.Else)}
	case *WhileStatement:
		return &WhileStatement{Condition: CloneExpression(s.Condition), Body: CloneBlock(s.Body)}
	case *ForEachStatement:
		return &ForEachStatement{Type: s.Type, Name: s.Name, Collection: CloneExpression(s.Collection), Body: CloneBlock(s.Body), Await: s.Await}
	case *LabeledStatement:
		return &LabeledStatement{Label: s.Label, Statement: CloneStatement(s.Statement)}
	case *GotoStatement:
		return &GotoStatement{Label: s.Label, Up: s.Up}
	case *YieldReturnStatement:
		return &YieldReturnStatement{Value: CloneExpression(s.Value)}
	case *YieldBreakStatement:
		return &YieldBreakStatement{}
	case *EmptyStatement:
		return &EmptyStatement{}
	}
	panic("ast: unknown statement")
}

func CloneExpression(e Expression) Expression {
	switch e := e.(type) {
	case nil:
		return nil
	case *Identifier:
		return &Identifier{Name: e.Name, Up: e.Up}
	case *StringLiteral:
		return &StringLiteral{Value: e.Value}
	case *IntegerLiteral:
		return &IntegerLiteral{Value: e.Value}
	case *BooleanLiteral:
		return &BooleanLiteral{Value: e.Value}
	case *NullLiteral:
		return &NullLiteral{}
	case *ThisExpression:
		return &ThisExpression{}
	case *BaseExpression:
		return &BaseExpression{}
	case *TypeName:
		return &TypeName{Name: e.Name}
	case *MemberAccess:
		return &MemberAccess{Object: CloneExpression(e.Object), Member: e.Member}
	case *Invocation:
		return &Invocation{Function: CloneExpression(e.Function), Args: cloneExprs(e.Args)}
	case *Assignment:
		return &Assignment{Target: CloneExpression(e.Target), Operator: e.Operator, Value: CloneExpression(e.Value)}
	case *BinaryExpression:
		return &BinaryExpression{Left: CloneExpression(e.Left), Operator: e.Operator, Right: CloneExpression(e.Right)}
	case *UnaryExpression:
		return &UnaryExpression{Operator: e.Operator, Operand: CloneExpression(e.Operand)}
	case *AwaitExpression:
		return &AwaitExpression{Value: CloneExpression(e.Value)}
	case *DefaultExpression:
		return &DefaultExpression{Type: e.Type}
	case *ProceedExpression:
		return &ProceedExpression{
			Semantics: e.Semantics,
			Kind:      e.Kind,
			Member:    e.Member,
			Accessor:  e.Accessor,
			Receiver:  CloneExpression(e.Receiver),
			Args:      cloneExprs(e.Args),
		}
	}
	panic("ast: unknown expression")
}

func cloneExprs(in []Expression) []Expression {
	if in == nil {
		return nil
	}
	out := make([]Expression, len(in))
	for i, e := range in {
		out[i] = CloneExpression(e)
	}
	return out
}
