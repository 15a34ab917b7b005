package parser

import (
	"strconv"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.errorAt(diagnostics.ErrP001, p.curToken, "expression too complex: recursion depth limit exceeded")
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		if leftExp = infix(leftExp); leftExp == nil {
			return nil
		}
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return ast.Ident(p.curToken.Literal)
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.errorAt(diagnostics.ErrP004, p.curToken, "could not parse %q as integer", p.curToken.Literal)
		return nil
	}
	return ast.Int(v)
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return ast.Str(p.curToken.Literal)
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNull() ast.Expression {
	return &ast.NullLiteral{}
}

func (p *Parser) parseThis() ast.Expression {
	return &ast.ThisExpression{}
}

func (p *Parser) parseBase() ast.Expression {
	return &ast.BaseExpression{}
}

// default or default(T)
func (p *Parser) parseDefault() ast.Expression {
	if !p.peekTokenIs(token.LPAREN) {
		return &ast.DefaultExpression{}
	}
	p.nextToken()
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	e := &ast.DefaultExpression{Type: p.curToken.Literal}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return e
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken() // consume '('
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.UnaryExpression{Operator: p.curToken.Literal}
	p.nextToken()
	if expression.Operand = p.parseExpression(PREFIX); expression.Operand == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseAwaitExpression() ast.Expression {
	p.nextToken()
	value := p.parseExpression(PREFIX)
	if value == nil {
		return nil
	}
	return &ast.AwaitExpression{Value: value}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.BinaryExpression{Operator: p.curToken.Literal, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	if expression.Right = p.parseExpression(precedence); expression.Right == nil {
		return nil
	}
	return expression
}

// parseAssignment parses the right-associative = += -=. Assigning to an
// invoke request of a property or event turns it into a request of the set,
// add or remove accessor carrying the value.
func (p *Parser) parseAssignment(left ast.Expression) ast.Expression {
	op := p.curToken
	p.nextToken()
	value := p.parseExpression(ASSIGN - 1)
	if value == nil {
		return nil
	}

	switch target := left.(type) {
	case *ast.Identifier, *ast.MemberAccess:
		return ast.Assign(target, op.Literal, value)
	case *ast.ProceedExpression:
		if isPropertyRead(target) {
			target.Accessor = accessorFor(op.Type)
			target.Args = []ast.Expression{value}
			return target
		}
	}
	p.errorAt(diagnostics.ErrP002, op, "left side of '%s' is not assignable", op.Literal)
	return nil
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	args := p.parseExpressionList(token.RPAREN)
	if args == nil {
		return nil
	}
	return ast.Call(function, args...)
}

func (p *Parser) parseMemberAccess(object ast.Expression) ast.Expression {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	return ast.Member(object, p.curToken.Literal)
}

// parseExpressionList parses comma separated expressions after an opening
// token up to end. It returns a non-nil slice on success.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	for {
		e := p.parseExpression(LOWEST)
		if e == nil {
			return nil
		}
		list = append(list, e)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}
