package ast

// Shorthand constructors used by the weaver when it synthesizes code.

func Ident(name string) *Identifier { return &Identifier{Name: name} }

func Str(s string) *StringLiteral { return &StringLiteral{Value: s} }

func Int(v int64) *IntegerLiteral { return &IntegerLiteral{Value: v} }

func Member(obj Expression, name string) *MemberAccess {
	return &MemberAccess{Object: obj, Member: name}
}

func Call(fn Expression, args ...Expression) *Invocation {
	if args == nil {
		args = []Expression{}
	}
	return &Invocation{Function: fn, Args: args}
}

func Assign(target Expression, op string, value Expression) *Assignment {
	return &Assignment{Target: target, Operator: op, Value: value}
}

func ExprStmt(e Expression) *ExpressionStatement { return &ExpressionStatement{Expression: e} }

func Return(e Expression) *ReturnStatement { return &ReturnStatement{Value: e} }

// Discard is `_ = e;`, the statement form of a value that must be evaluated.
func Discard(e Expression) *ExpressionStatement {
	return ExprStmt(Assign(Ident("_"), "=", e))
}

// Lift marks every identifier in e as referring Up more splice boundaries
// outward. Used when an expression of an outer link is copied into a splice.
func Lift(e Expression, up int) Expression {
	Inspect(e, func(n Node) bool {
		if id, ok := n.(*Identifier); ok {
			id.Up += up
		}
		return true
	})
	return e
}
