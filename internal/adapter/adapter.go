// Package adapter inserts the glue needed when a call crosses links of
// different execution shapes: awaiting a task, materializing a lazy sequence,
// or turning an awaited async stream back into an async iterator.
package adapter

import (
	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/symbols"
)

type Glue int

const (
	GlueNone        Glue = iota
	GlueAwait            // await call
	GlueBuffer           // call.Buffer()
	GlueBufferAsync      // await call.BufferAsync(ct)
)

func (g Glue) String() string {
	switch g {
	case GlueAwait:
		return "await"
	case GlueBuffer:
		return "buffer"
	case GlueBufferAsync:
		return "buffer-async"
	}
	return "none"
}

// MarksAsync reports whether the glue requires the calling body to be async.
func (g Glue) MarksAsync() bool {
	return g == GlueAwait || g == GlueBufferAsync
}

// Boundary describes one call from a caller body to a callee.
type Boundary struct {
	Kind         ast.ProceedKind
	Callee       symbols.Shape // Effective shape of the callee
	Caller       symbols.Shape // Shape of the declaration the caller body belongs to
	CallerYields bool          // The caller body is an iterator body
	Discarded    bool          // The call's value is thrown away
}

// Plan decides the glue for a boundary. Only default proceeds are adapted;
// the explicit kinds ask for the callee's own shape.
func Plan(b Boundary) Glue {
	if b.Kind != ast.ProceedDefault {
		return GlueNone
	}
	switch b.Callee {
	case symbols.ShapeAsync:
		if b.Caller.IsAsync() {
			return GlueAwait
		}
	case symbols.ShapeIterator:
		if !b.CallerYields || b.Discarded {
			return GlueBuffer
		}
	case symbols.ShapeAsyncIterator:
		if !b.Caller.IsAsync() {
			return GlueNone
		}
		if b.Caller != symbols.ShapeAsyncIterator || !b.CallerYields || b.Discarded {
			return GlueBufferAsync
		}
	}
	return GlueNone
}

// Apply wraps call according to g. token names the cancellation token passed
// to BufferAsync; empty passes none.
func Apply(call ast.Expression, g Glue, token string) ast.Expression {
	switch g {
	case GlueAwait:
		return &ast.AwaitExpression{Value: call}
	case GlueBuffer:
		return ast.Call(ast.Member(call, config.BufferHelper))
	case GlueBufferAsync:
		var args []ast.Expression
		if token != "" {
			args = append(args, ast.Ident(token))
		}
		return &ast.AwaitExpression{Value: ast.Call(ast.Member(call, config.BufferAsyncHelper), args...)}
	}
	return call
}

// StreamReturns rewrites the returns of an async-iterator body that awaits
// but does not yield into
//
//	await foreach (var item in e) yield return item;
//	yield break;
//
// so the body is a valid async iterator again. A body without returns gets a
// trailing yield break. It reports whether the body changed.
func StreamReturns(body *ast.Block) bool {
	if body == nil || ast.ContainsYield(body) {
		return false
	}
	changed := false
	ast.RewriteStatements(body, func(s ast.Statement) ([]ast.Statement, bool) {
		ret, ok := s.(*ast.ReturnStatement)
		if !ok {
			return nil, false
		}
		changed = true
		if ret.Value == nil {
			return []ast.Statement{&ast.YieldBreakStatement{}}, true
		}
		return []ast.Statement{
			&ast.ForEachStatement{
				Type:       "var",
				Name:       config.StreamItemName,
				Collection: ret.Value,
				Body:       ast.NewBlock(&ast.YieldReturnStatement{Value: ast.Ident(config.StreamItemName)}),
				Await:      true,
			},
			&ast.YieldBreakStatement{},
		}, true
	})
	if !changed {
		body.Statements = append(body.Statements, &ast.YieldBreakStatement{})
	}
	return true
}
