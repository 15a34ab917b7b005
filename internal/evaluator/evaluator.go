// Package evaluator runs member bodies of a model and records what they
// write to the console. Running a member before and after weaving shows the
// behavior the woven code adds, and the order it happens in.
package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/parser"
	"github.com/funvibe/weaver/internal/symbols"
)

const maxDepth = 256

type Evaluator struct {
	program    *Program
	ctx        context.Context
	out        []string
	depth      int
	generators []*generator
	statics    map[symbols.TypeID]map[string]Object
}

func New(p *Program) *Evaluator {
	return &Evaluator{program: p, statics: make(map[symbols.TypeID]map[string]Object)}
}

// Call invokes a member "Type.Member" on a fresh instance (or statically),
// consumes its result and returns it together with the console output.
// Sequences are consumed to the end, tasks awaited.
func (e *Evaluator) Call(ctx context.Context, qualified string, args ...Object) (Object, []string, error) {
	e.ctx = ctx
	e.out = nil
	defer e.stopAll()

	i := strings.LastIndex(qualified, ".")
	if i <= 0 {
		return nil, nil, fmt.Errorf("member %q is not qualified by its type", qualified)
	}
	t, ok := e.program.comp.TypeByName(qualified[:i])
	if !ok {
		return nil, nil, fmt.Errorf("unknown type %s", qualified[:i])
	}
	name := qualified[i+1:]
	arity := len(args)
	if m, _ := e.program.find(t.ID, name, arity); m == nil {
		arity = -1
	}
	m, owner := e.program.find(t.ID, name, arity)
	if m == nil {
		return nil, nil, fmt.Errorf("type %s has no runnable member %s with %d arguments", t.Name, name, len(args))
	}
	var this *Instance
	if !m.Static {
		this = &Instance{Class: t, Fields: make(map[string]Object)}
	}

	var res Object
	if m.Kind == symbols.MethodDecl {
		res = e.callMethod(m, owner, this, args)
	} else {
		res = e.callAccessor(m, owner, this, symbols.AccessorGet, nil)
	}
	res = e.consume(res)
	if err, ok := res.(*Error); ok {
		return nil, e.out, err
	}
	return res, e.out, nil
}

// consume awaits tasks and buffers sequences.
func (e *Evaluator) consume(obj Object) Object {
	if t, ok := obj.(*Task); ok {
		obj = t.Value
	}
	if s, ok := obj.(*Sequence); ok {
		items, err := s.drain()
		if err != nil {
			return err
		}
		return newList(items, s.Async)
	}
	return obj
}

func (e *Evaluator) stopAll() {
	for i := len(e.generators) - 1; i >= 0; i-- {
		e.generators[i].stop()
	}
	e.generators = nil
}

// Value evaluates a literal expression, such as an argument given on the
// command line.
func Value(src string) (Object, error) {
	expr, errs := parser.ParseExpression(src)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return Constant(expr)
}

// Constant evaluates an expression that refers to no member or local.
func Constant(expr ast.Expression) (Object, error) {
	e := &Evaluator{ctx: context.Background()}
	obj := e.Eval(expr, NewEnvironment())
	if err, ok := obj.(*Error); ok {
		return nil, err
	}
	return obj, nil
}

func (e *Evaluator) Eval(node ast.Node, env *Environment) Object {
	if e.ctx != nil {
		if err := e.ctx.Err(); err != nil {
			return newError("evaluation aborted: %v", err)
		}
	}
	switch node := node.(type) {
	case *ast.Block:
		return e.evalBlock(node, env)
	case *ast.LocalDeclaration:
		return e.evalLocalDeclaration(node, env)
	case *ast.ExpressionStatement:
		val := e.Eval(node.Expression, env)
		if isError(val) {
			return val
		}
		return NULL
	case *ast.ReturnStatement:
		if node.Value == nil {
			return &ReturnValue{Value: NULL}
		}
		val := e.Eval(node.Value, env)
		if isError(val) {
			return val
		}
		return &ReturnValue{Value: val}
	case *ast.IfStatement:
		cond := e.Eval(node.Condition, env)
		if isError(cond) {
			return cond
		}
		if truthy(cond) {
			return e.evalBlock(node.Then, env)
		}
		if node.Else != nil {
			return e.evalBlock(node.Else, env)
		}
		return NULL
	case *ast.WhileStatement:
		return e.evalWhile(node, env)
	case *ast.ForEachStatement:
		return e.evalForEach(node, env)
	case *ast.LabeledStatement:
		if node.Statement == nil {
			return NULL
		}
		return e.Eval(node.Statement, env)
	case *ast.GotoStatement:
		return &GotoSignal{Label: node.Label}
	case *ast.YieldReturnStatement:
		f := env.current()
		if f == nil || f.yield == nil {
			return newError("yield return outside an iterator")
		}
		val := e.Eval(node.Value, env)
		if isError(val) {
			return val
		}
		if err := f.yield(val); err != nil {
			return err
		}
		return NULL
	case *ast.YieldBreakStatement:
		return &YieldBreak{}
	case *ast.EmptyStatement:
		return NULL

	case *ast.Identifier:
		return e.evalIdentifier(node, env)
	case *ast.StringLiteral:
		return &String{Value: node.Value}
	case *ast.IntegerLiteral:
		return &Integer{Value: node.Value}
	case *ast.BooleanLiteral:
		return nativeBool(node.Value)
	case *ast.NullLiteral:
		return NULL
	case *ast.ThisExpression:
		f := env.current()
		if f == nil || f.this == nil {
			return newError("this is not available in a static member")
		}
		return f.this
	case *ast.BaseExpression:
		return newError("base can only be used to access a member")
	case *ast.TypeName:
		return e.typeRef(node.Name)
	case *ast.MemberAccess:
		recv := e.evalReceiver(node.Object, env)
		if isError(recv) {
			return recv
		}
		return e.getMember(recv, node.Member)
	case *ast.Invocation:
		return e.evalInvocation(node, env)
	case *ast.Assignment:
		return e.evalAssignment(node, env)
	case *ast.BinaryExpression:
		return e.evalBinary(node, env)
	case *ast.UnaryExpression:
		operand := e.Eval(node.Operand, env)
		if isError(operand) {
			return operand
		}
		return evalUnary(node.Operator, operand)
	case *ast.AwaitExpression:
		val := e.Eval(node.Value, env)
		if isError(val) {
			return val
		}
		if t, ok := val.(*Task); ok {
			return t.Value
		}
		return newError("cannot await %s", val.Type())
	case *ast.DefaultExpression:
		return zero(node.Type)
	case *ast.ProceedExpression:
		return newError("unresolved invoke request")
	}
	return newError("unknown node %T", node)
}

// evalBlock runs statements in a new scope. A goto to a label declared
// directly in the block resumes at the label.
func (e *Evaluator) evalBlock(b *ast.Block, env *Environment) Object {
	if b == nil {
		return NULL
	}
	scope := NewEnclosedEnvironment(env)
	var labels map[string]int
	for i, s := range b.Statements {
		if l, ok := s.(*ast.LabeledStatement); ok {
			if labels == nil {
				labels = make(map[string]int)
			}
			labels[l.Label] = i
		}
	}
	for i := 0; i < len(b.Statements); i++ {
		res := e.Eval(b.Statements[i], scope)
		switch res := res.(type) {
		case *GotoSignal:
			if at, ok := labels[res.Label]; ok {
				i = at - 1
				continue
			}
			return res
		case *ReturnValue, *Error, *YieldBreak:
			return res
		}
	}
	return NULL
}

func (e *Evaluator) evalLocalDeclaration(s *ast.LocalDeclaration, env *Environment) Object {
	if s.Value == nil {
		env.Set(s.Name, zero(s.Type))
		return NULL
	}
	val := e.Eval(s.Value, env)
	if isError(val) {
		return val
	}
	env.Set(s.Name, val)
	return NULL
}

func (e *Evaluator) evalWhile(s *ast.WhileStatement, env *Environment) Object {
	for {
		cond := e.Eval(s.Condition, env)
		if isError(cond) {
			return cond
		}
		if !truthy(cond) {
			return NULL
		}
		if res := e.evalBlock(s.Body, env); isSignal(res) {
			return res
		}
	}
}

func (e *Evaluator) evalForEach(s *ast.ForEachStatement, env *Environment) Object {
	coll := e.Eval(s.Collection, env)
	if isError(coll) {
		return coll
	}
	seq, ok := coll.(*Sequence)
	if !ok {
		return newError("foreach over %s", coll.Type())
	}
	if seq.Async != s.Await {
		if s.Await {
			return newError("await foreach over a synchronous sequence")
		}
		return newError("foreach over an asynchronous sequence")
	}
	for {
		item, more, err := seq.Next()
		if err != nil {
			return err
		}
		if !more {
			return NULL
		}
		scope := NewEnclosedEnvironment(env)
		scope.Set(s.Name, item)
		if res := e.evalBlock(s.Body, scope); isSignal(res) {
			seq.Stop()
			return res
		}
	}
}
