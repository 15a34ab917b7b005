package evaluator

import (
	"fmt"
	"strings"

	"github.com/funvibe/weaver/internal/ast"
)

func newError(format string, a ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}

func isError(obj Object) bool {
	return obj != nil && obj.Type() == ERROR_OBJ
}

// isSignal reports whether obj ends the enclosing statements early.
func isSignal(obj Object) bool {
	switch obj.(type) {
	case *ReturnValue, *GotoSignal, *YieldBreak, *Error:
		return true
	}
	return false
}

func truthy(obj Object) bool {
	switch o := obj.(type) {
	case *Boolean:
		return o.Value
	case *Null:
		return false
	case *Integer:
		return o.Value != 0
	}
	return true
}

// zero is default(T).
func zero(typ string) Object {
	switch typ {
	case "int", "long", "short", "byte", "uint", "ulong":
		return &Integer{Value: 0}
	case "bool":
		return FALSE
	}
	return NULL
}

// Delegate is the combined handler list of an event.
type Delegate struct {
	Handlers []Object
}

func (d *Delegate) Type() ObjectType { return DELEGATE_OBJ }

func (d *Delegate) Inspect() string {
	parts := make([]string, len(d.Handlers))
	for i, h := range d.Handlers {
		parts[i] = h.Inspect()
	}
	return strings.Join(parts, "+")
}

// combine applies a compound assignment to the current value. Event storage
// combines delegates.
func combine(op string, cur, val Object, event bool) Object {
	if op == "=" {
		return val
	}
	if event {
		d, _ := cur.(*Delegate)
		if d == nil {
			d = &Delegate{}
		}
		if op == "+=" {
			return &Delegate{Handlers: append(append([]Object{}, d.Handlers...), val)}
		}
		for i := len(d.Handlers) - 1; i >= 0; i-- {
			if equal(d.Handlers[i], val) {
				return &Delegate{Handlers: append(append([]Object{}, d.Handlers[:i]...), d.Handlers[i+1:]...)}
			}
		}
		return d
	}
	switch c := cur.(type) {
	case *Integer:
		if v, ok := val.(*Integer); ok {
			if op == "+=" {
				return &Integer{Value: c.Value + v.Value}
			}
			return &Integer{Value: c.Value - v.Value}
		}
	case *String:
		if op == "+=" {
			return &String{Value: c.Value + val.Inspect()}
		}
	case *Null:
		if _, ok := val.(*String); ok && op == "+=" {
			return val
		}
	}
	return newError("operator %s not supported: %s and %s", op, cur.Type(), val.Type())
}

func equal(a, b Object) bool {
	switch a := a.(type) {
	case *Integer:
		if b, ok := b.(*Integer); ok {
			return a.Value == b.Value
		}
	case *String:
		if b, ok := b.(*String); ok {
			return a.Value == b.Value
		}
	case *Boolean:
		if b, ok := b.(*Boolean); ok {
			return a.Value == b.Value
		}
	case *Null:
		_, ok := b.(*Null)
		return ok
	}
	return a == b
}

func evalUnary(op string, operand Object) Object {
	switch op {
	case "!":
		if b, ok := operand.(*Boolean); ok {
			return nativeBool(!b.Value)
		}
	case "-":
		if i, ok := operand.(*Integer); ok {
			return &Integer{Value: -i.Value}
		}
	}
	return newError("unknown operator: %s%s", op, operand.Type())
}

func (e *Evaluator) evalBinary(b *ast.BinaryExpression, env *Environment) Object {
	left := e.Eval(b.Left, env)
	if isError(left) {
		return left
	}
	switch b.Operator {
	case "&&":
		if !truthy(left) {
			return FALSE
		}
		return e.evalCondition(b.Right, env)
	case "||":
		if truthy(left) {
			return TRUE
		}
		return e.evalCondition(b.Right, env)
	case "??":
		if left != NULL {
			return left
		}
		return e.Eval(b.Right, env)
	}
	right := e.Eval(b.Right, env)
	if isError(right) {
		return right
	}
	switch b.Operator {
	case "==":
		return nativeBool(equal(left, right))
	case "!=":
		return nativeBool(!equal(left, right))
	}
	l, lok := left.(*Integer)
	r, rok := right.(*Integer)
	if lok && rok {
		return evalIntegerInfix(b.Operator, l.Value, r.Value)
	}
	if b.Operator == "+" && (left.Type() == STRING_OBJ || right.Type() == STRING_OBJ) {
		return &String{Value: left.Inspect() + right.Inspect()}
	}
	return newError("type mismatch: %s %s %s", left.Type(), b.Operator, right.Type())
}

func (e *Evaluator) evalCondition(expr ast.Expression, env *Environment) Object {
	val := e.Eval(expr, env)
	if isError(val) {
		return val
	}
	return nativeBool(truthy(val))
}

func evalIntegerInfix(op string, l, r int64) Object {
	switch op {
	case "+":
		return &Integer{Value: l + r}
	case "-":
		return &Integer{Value: l - r}
	case "*":
		return &Integer{Value: l * r}
	case "/", "%":
		if r == 0 {
			return newError("division by zero")
		}
		if op == "/" {
			return &Integer{Value: l / r}
		}
		return &Integer{Value: l % r}
	case "<":
		return nativeBool(l < r)
	case ">":
		return nativeBool(l > r)
	case "<=":
		return nativeBool(l <= r)
	case ">=":
		return nativeBool(l >= r)
	}
	return newError("unknown operator: INTEGER %s INTEGER", op)
}
