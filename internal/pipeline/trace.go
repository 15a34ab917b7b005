package pipeline

import (
	"fmt"
	"strings"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/evaluator"
	"github.com/funvibe/weaver/internal/parser"
)

// Call is a member invocation to trace, such as "Calc.Add(1, 2)" or
// "Calc.Name" for a property read.
type Call struct {
	Text   string
	Member string
	Args   []evaluator.Object
}

// ParseCall parses the call syntax. Arguments must be literals.
func ParseCall(text string) (Call, error) {
	text = strings.TrimSpace(text)
	expr, errs := parser.ParseExpression(text)
	if len(errs) > 0 {
		return Call{}, fmt.Errorf("call %q: %w", text, errs[0])
	}
	c := Call{Text: text}
	var args []ast.Expression
	if inv, ok := expr.(*ast.Invocation); ok {
		expr, args = inv.Function, inv.Args
	}
	name, ok := qualifiedName(expr)
	if !ok || !strings.Contains(name, ".") {
		return Call{}, fmt.Errorf("call %q: expected Type.Member", text)
	}
	c.Member = name
	for _, a := range args {
		v, err := evaluator.Constant(a)
		if err != nil {
			return Call{}, fmt.Errorf("call %q: argument %s: %w", text, ast.Dump(a), err)
		}
		c.Args = append(c.Args, v)
	}
	return c, nil
}

func qualifiedName(e ast.Expression) (string, bool) {
	switch e := e.(type) {
	case *ast.Identifier:
		return e.Name, true
	case *ast.MemberAccess:
		obj, ok := qualifiedName(e.Object)
		return obj + "." + e.Member, ok
	}
	return "", false
}

// Trace is the outcome of one call.
type Trace struct {
	Call   Call
	Result evaluator.Object
	Output []string
	Err    error
}

// FormatTraces renders traces as the trace command prints them: a header per
// call with its result, followed by the console output.
//
//	> Calc.Add(1, 2) = 3
//	trace
//	add
func FormatTraces(traces []Trace) string {
	var sb strings.Builder
	for _, t := range traces {
		sb.WriteString("> " + t.Call.Text)
		switch {
		case t.Err != nil:
			sb.WriteString(" ! " + t.Err.Error())
		case t.Result != nil && t.Result.Type() != evaluator.NULL_OBJ:
			sb.WriteString(" = " + t.Result.Inspect())
		}
		sb.WriteString("\n")
		for _, line := range t.Output {
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}
