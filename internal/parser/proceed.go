package parser

import (
	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/token"
)

var proceedKinds = map[string]ast.ProceedKind{
	"async":           ast.ProceedAsync,
	"enumerable":      ast.ProceedEnumerable,
	"asyncEnumerable": ast.ProceedAsyncEnumerable,
}

// parseProceed parses a request for the next link of the woven declaration:
//
//	proceed()             forward the declaration's parameters
//	proceed(x, y)         pass explicit arguments
//	proceed.async()       the task itself, likewise enumerable and asyncEnumerable
func (p *Parser) parseProceed() ast.Expression {
	req := &ast.ProceedExpression{}
	if p.peekTokenIs(token.DOT) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		kind, ok := proceedKinds[p.curToken.Literal]
		if !ok {
			p.errorAt(diagnostics.ErrP001, p.curToken, "unknown proceed kind %q", p.curToken.Literal)
			return nil
		}
		req.Kind = kind
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	args := p.parseExpressionList(token.RPAREN)
	if args == nil {
		return nil
	}
	if len(args) > 0 {
		req.Args = args
	}
	return req
}

// parseInvoke parses a request for a named member:
//
//	invoke.Name(args)                 default semantics
//	invoke.base.Name(args)            also current and final
//	invoke.final(receiver).Name(args) on another instance
//	invoke.current.Name               property read; assign to write
func (p *Parser) parseInvoke() ast.Expression {
	req := &ast.ProceedExpression{}
	if !p.expectPeek(token.DOT) {
		return nil
	}
	p.nextToken()

	named := p.curTokenIs(token.IDENT) && (p.curToken.Literal == "current" || p.curToken.Literal == "final")
	if p.curTokenIs(token.BASE) || (named && (p.peekTokenIs(token.DOT) || p.peekTokenIs(token.LPAREN))) {
		req.Semantics, _ = ast.ParseSemantics(p.curToken.Literal)
		if p.peekTokenIs(token.LPAREN) {
			p.nextToken()
			p.nextToken()
			if req.Receiver = p.parseExpression(LOWEST); req.Receiver == nil {
				return nil
			}
			if !p.expectPeek(token.RPAREN) {
				return nil
			}
		}
		if !p.expectPeek(token.DOT) || !p.expectPeek(token.IDENT) {
			return nil
		}
	} else if !p.curTokenIs(token.IDENT) {
		p.errorAt(diagnostics.ErrP001, p.curToken, "expected member name after 'invoke.', got %s", describe(p.curToken.Type))
		return nil
	}

	name := p.curToken
	id, ok := symbols.NoDecl, false
	if p.lookup != nil {
		id, ok = p.lookup(name.Literal)
	}
	if !ok {
		p.errorAt(diagnostics.ErrP003, name, "unknown member %s", name.Literal)
		return nil
	}
	req.Member = id

	if !p.peekTokenIs(token.LPAREN) {
		req.Accessor = symbols.AccessorGet
		return req
	}
	p.nextToken()
	if req.Args = p.parseExpressionList(token.RPAREN); req.Args == nil {
		return nil
	}
	return req
}

func isPropertyRead(req *ast.ProceedExpression) bool {
	return req.Member != symbols.NoDecl && req.Accessor == symbols.AccessorGet && req.Args == nil
}

func accessorFor(op token.TokenType) symbols.AccessorKind {
	switch op {
	case token.PLUS_ASSIGN:
		return symbols.AccessorAdd
	case token.MINUS_ASSIGN:
		return symbols.AccessorRemove
	}
	return symbols.AccessorSet
}
