package ast

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	var out []Node
	addExpr := func(e Expression) {
		if e != nil {
			out = append(out, e)
		}
	}
	addBlock := func(b *Block) {
		if b != nil {
			out = append(out, b)
		}
	}
	switch n := n.(type) {
	case *Block:
		for _, s := range n.Statements {
			out = append(out, s)
		}
	case *LocalDeclaration:
		addExpr(n.Value)
	case *ExpressionStatement:
		addExpr(n.Expression)
	case *ReturnStatement:
		addExpr(n.Value)
	case *IfStatement:
		addExpr(n.Condition)
		addBlock(n.Then)
		addBlock(n.Else)
	case *WhileStatement:
		addExpr(n.Condition)
		addBlock(n.Body)
	case *ForEachStatement:
		addExpr(n.Collection)
		addBlock(n.Body)
	case *LabeledStatement:
		if n.Statement != nil {
			out = append(out, n.Statement)
		}
	case *YieldReturnStatement:
		addExpr(n.Value)
	case *MemberAccess:
		addExpr(n.Object)
	case *Invocation:
		addExpr(n.Function)
		for _, a := range n.Args {
			addExpr(a)
		}
	case *Assignment:
		addExpr(n.Target)
		addExpr(n.Value)
	case *BinaryExpression:
		addExpr(n.Left)
		addExpr(n.Right)
	case *UnaryExpression:
		addExpr(n.Operand)
	case *AwaitExpression:
		addExpr(n.Value)
	case *ProceedExpression:
		addExpr(n.Receiver)
		for _, a := range n.Args {
			addExpr(a)
		}
	}
	return out
}

// Inspect traverses n in depth-first order, calling f for each node. If f
// returns false the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// Proceeds returns the invoke requests in n in source order.
func Proceeds(n Node) []*ProceedExpression {
	var out []*ProceedExpression
	Inspect(n, func(n Node) bool {
		if p, ok := n.(*ProceedExpression); ok {
			out = append(out, p)
		}
		return true
	})
	return out
}

// ContainsYield reports whether the body is an iterator body.
func ContainsYield(n Node) bool {
	found := false
	Inspect(n, func(n Node) bool {
		switch n.(type) {
		case *YieldReturnStatement, *YieldBreakStatement:
			found = true
		}
		return !found
	})
	return found
}

// ContainsAwait reports whether the body awaits, including `await foreach`.
func ContainsAwait(n Node) bool {
	found := false
	Inspect(n, func(n Node) bool {
		switch n := n.(type) {
		case *AwaitExpression:
			found = true
		case *ForEachStatement:
			if n.Await {
				found = true
			}
		}
		return !found
	})
	return found
}

// RewriteExpressions replaces expressions below n bottom-up: children are
// rewritten before f sees their parent. f returns its argument to keep it.
func RewriteExpressions(n Node, f func(Expression) Expression) {
	rw := func(e Expression) Expression {
		if e == nil {
			return nil
		}
		RewriteExpressions(e, f)
		return f(e)
	}
	switch n := n.(type) {
	case *Block:
		for _, s := range n.Statements {
			RewriteExpressions(s, f)
		}
	case *LocalDeclaration:
		n.Value = rw(n.Value)
	case *ExpressionStatement:
		n.Expression = rw(n.Expression)
	case *ReturnStatement:
		n.Value = rw(n.Value)
	case *IfStatement:
		n.Condition = rw(n.Condition)
		RewriteExpressions(n.Then, f)
		if n.Else != nil {
			RewriteExpressions(n.Else, f)
		}
	case *WhileStatement:
		n.Condition = rw(n.Condition)
		RewriteExpressions(n.Body, f)
	case *ForEachStatement:
		n.Collection = rw(n.Collection)
		RewriteExpressions(n.Body, f)
	case *LabeledStatement:
		if n.Statement != nil {
			RewriteExpressions(n.Statement, f)
		}
	case *YieldReturnStatement:
		n.Value = rw(n.Value)
	case *MemberAccess:
		n.Object = rw(n.Object)
	case *Invocation:
		n.Function = rw(n.Function)
		for i := range n.Args {
			n.Args[i] = rw(n.Args[i])
		}
	case *Assignment:
		n.Target = rw(n.Target)
		n.Value = rw(n.Value)
	case *BinaryExpression:
		n.Left = rw(n.Left)
		n.Right = rw(n.Right)
	case *UnaryExpression:
		n.Operand = rw(n.Operand)
	case *AwaitExpression:
		n.Value = rw(n.Value)
	case *ProceedExpression:
		n.Receiver = rw(n.Receiver)
		for i := range n.Args {
			n.Args[i] = rw(n.Args[i])
		}
	}
}

// RewriteStatements visits every statement list below b. For each statement f
// may return a replacement list (ok == true), which is not visited further;
// otherwise the statement is kept and its nested blocks are visited.
func RewriteStatements(b *Block, f func(Statement) ([]Statement, bool)) {
	if b == nil {
		return
	}
	out := make([]Statement, 0, len(b.Statements))
	for _, s := range b.Statements {
		if repl, ok := f(s); ok {
			out = append(out, repl...)
			continue
		}
		rewriteNested(s, f)
		out = append(out, s)
	}
	b.Statements = out
}

func rewriteNested(s Statement, f func(Statement) ([]Statement, bool)) {
	switch s := s.(type) {
	case *Block:
		RewriteStatements(s, f)
	case *IfStatement:
		RewriteStatements(s.Then, f)
		RewriteStatements(s.Else, f)
	case *WhileStatement:
		RewriteStatements(s.Body, f)
	case *ForEachStatement:
		RewriteStatements(s.Body, f)
	case *LabeledStatement:
		if repl, ok := f(s.Statement); ok {
			s.Statement = asSingle(repl)
			return
		}
		rewriteNested(s.Statement, f)
	}
}

func asSingle(stmts []Statement) Statement {
	switch len(stmts) {
	case 0:
		return &EmptyStatement{}
	case 1:
		return stmts[0]
	}
	return &Block{Statements: stmts}
}
