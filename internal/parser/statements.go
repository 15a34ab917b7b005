package parser

import (
	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/token"
)

// ParseBody parses statements up to the end of input.
func (p *Parser) ParseBody() *ast.Block {
	block := ast.NewBlock()
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.RBRACE) {
			p.errorAt(diagnostics.ErrP001, p.curToken, "unexpected '}'")
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt == nil {
			p.synchronize()
		} else {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

// synchronize skips to the end of the broken statement.
func (p *Parser) synchronize() {
	for !p.curTokenIs(token.SEMICOLON) && !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

// parseStatement parses one statement starting at curToken and leaves
// curToken on its last token.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LBRACE:
		if b := p.parseBlockStatement(); b != nil {
			return b
		}
		return nil
	case token.SEMICOLON:
		return &ast.EmptyStatement{}
	case token.VAR:
		return p.parseLocalDeclaration()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOREACH:
		return p.parseForEachStatement(false)
	case token.AWAIT:
		if p.peekTokenIs(token.FOREACH) {
			p.nextToken()
			return p.parseForEachStatement(true)
		}
	case token.YIELD:
		return p.parseYieldStatement()
	case token.GOTO:
		return p.parseGotoStatement()
	case token.IDENT:
		if p.peekTokenIs(token.IDENT) {
			return p.parseLocalDeclaration()
		}
		if p.peekTokenIs(token.COLON) {
			return p.parseLabeledStatement()
		}
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseBlockStatement() *ast.Block {
	block := ast.NewBlock()
	p.nextToken() // consume {
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.errorAt(diagnostics.ErrP001, p.curToken, "expected '}', got end of body")
			return nil
		}
		stmt := p.parseStatement()
		if stmt == nil {
			p.synchronize()
			if p.curTokenIs(token.RBRACE) {
				break
			}
		} else {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

// parseEmbedded parses the body of if, while and foreach. A single statement
// is wrapped in a block.
func (p *Parser) parseEmbedded() *ast.Block {
	if p.curTokenIs(token.LBRACE) {
		return p.parseBlockStatement()
	}
	stmt := p.parseStatement()
	if stmt == nil {
		return nil
	}
	return ast.NewBlock(stmt)
}

// var x = e;  int x;  int x = e;
func (p *Parser) parseLocalDeclaration() ast.Statement {
	stmt := &ast.LocalDeclaration{Type: p.curToken.Literal}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
		if stmt.Value == nil {
			return nil
		}
	} else if stmt.Type == "var" {
		p.errorAt(diagnostics.ErrP001, p.peekToken, "implicitly typed local %s needs an initializer", stmt.Name)
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseCondition() ast.Expression {
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	p.nextToken()
	return cond
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{}
	if stmt.Condition = p.parseCondition(); stmt.Condition == nil {
		return nil
	}
	if stmt.Then = p.parseEmbedded(); stmt.Then == nil {
		return nil
	}
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		if stmt.Else = p.parseEmbedded(); stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{}
	if stmt.Condition = p.parseCondition(); stmt.Condition == nil {
		return nil
	}
	if stmt.Body = p.parseEmbedded(); stmt.Body == nil {
		return nil
	}
	return stmt
}

// foreach (var x in e) body;  await foreach (int x in e) body
func (p *Parser) parseForEachStatement(await bool) ast.Statement {
	stmt := &ast.ForEachStatement{Await: await}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	if !p.curTokenIs(token.VAR) && !p.curTokenIs(token.IDENT) {
		p.errorAt(diagnostics.ErrP001, p.curToken, "expected loop variable type, got %s", describe(p.curToken.Type))
		return nil
	}
	stmt.Type = p.curToken.Literal
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal
	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	stmt.Collection = p.parseExpression(LOWEST)
	if stmt.Collection == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	p.nextToken()
	if stmt.Body = p.parseEmbedded(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseYieldStatement() ast.Statement {
	switch {
	case p.peekTokenIs(token.BREAK):
		p.nextToken()
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
		return &ast.YieldBreakStatement{}
	case p.peekTokenIs(token.RETURN):
		p.nextToken()
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if value == nil || !p.expectPeek(token.SEMICOLON) {
			return nil
		}
		return &ast.YieldReturnStatement{Value: value}
	}
	p.errorAt(diagnostics.ErrP001, p.peekToken, "expected 'return' or 'break' after 'yield'")
	return nil
}

func (p *Parser) parseGotoStatement() ast.Statement {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt := &ast.GotoStatement{Label: p.curToken.Literal}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

// label: stmt. A label closing a block labels an empty statement.
func (p *Parser) parseLabeledStatement() ast.Statement {
	stmt := &ast.LabeledStatement{Label: p.curToken.Literal}
	p.nextToken() // :
	if p.peekTokenIs(token.RBRACE) || p.peekTokenIs(token.EOF) {
		stmt.Statement = &ast.EmptyStatement{}
		return stmt
	}
	p.nextToken()
	if stmt.Statement = p.parseStatement(); stmt.Statement == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	expr := p.parseExpression(LOWEST)
	if expr == nil || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return ast.ExprStmt(expr)
}
