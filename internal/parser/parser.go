package parser

import (
	"fmt"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/lexer"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/token"
)

// MaxRecursionDepth bounds expression nesting.
const MaxRecursionDepth = 256

const (
	_ int = iota
	LOWEST
	ASSIGN      // = += -=
	COALESCE    // ??
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	EQUALS      // == !=
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x await x
	CALL        // f(x) a.b
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:       ASSIGN,
	token.PLUS_ASSIGN:  ASSIGN,
	token.MINUS_ASSIGN: ASSIGN,
	token.COALESCE:     COALESCE,
	token.OR:           LOGICAL_OR,
	token.AND:          LOGICAL_AND,
	token.EQ:           EQUALS,
	token.NOT_EQ:       EQUALS,
	token.LT:           LESSGREATER,
	token.GT:           LESSGREATER,
	token.LTE:          LESSGREATER,
	token.GTE:          LESSGREATER,
	token.PLUS:         SUM,
	token.MINUS:        SUM,
	token.ASTERISK:     PRODUCT,
	token.SLASH:        PRODUCT,
	token.PERCENT:      PRODUCT,
	token.LPAREN:       CALL,
	token.DOT:          CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Lookup resolves a member name used in an invoke request to a declaration.
type Lookup func(name string) (symbols.DeclID, bool)

type Option func(*Parser)

// WithLookup sets the resolver for `invoke` member names. Without one every
// named invoke request is reported as P003.
func WithLookup(fn Lookup) Option {
	return func(p *Parser) { p.lookup = fn }
}

// WithSource labels diagnostics with name and shifts their lines by offset,
// for bodies embedded in a larger file.
func WithSource(name string, lineOffset int) Option {
	return func(p *Parser) {
		p.source = name
		p.lineOffset = lineOffset
	}
}

type Parser struct {
	l      *lexer.Lexer
	errors []*diagnostics.DiagnosticError

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	lookup     Lookup
	source     string
	lineOffset int
	depth      int
}

func New(l *lexer.Lexer, opts ...Option) *Parser {
	p := &Parser{
		l:              l,
		prefixParseFns: make(map[token.TokenType]prefixParseFn),
		infixParseFns:  make(map[token.TokenType]infixParseFn),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.NULL, p.parseNull)
	p.registerPrefix(token.THIS, p.parseThis)
	p.registerPrefix(token.BASE, p.parseBase)
	p.registerPrefix(token.DEFAULT, p.parseDefault)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.AWAIT, p.parseAwaitExpression)
	p.registerPrefix(token.PROCEED, p.parseProceed)
	p.registerPrefix(token.INVOKE, p.parseInvoke)

	for _, t := range []token.TokenType{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
		token.EQ, token.NOT_EQ, token.LT, token.GT, token.LTE, token.GTE,
		token.AND, token.OR, token.COALESCE,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.ASSIGN, p.parseAssignment)
	p.registerInfix(token.PLUS_ASSIGN, p.parseAssignment)
	p.registerInfix(token.MINUS_ASSIGN, p.parseAssignment)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.DOT, p.parseMemberAccess)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

// ParseBody parses src as the statements of one member body.
func ParseBody(src string, opts ...Option) (*ast.Block, []*diagnostics.DiagnosticError) {
	p := New(lexer.New(src), opts...)
	b := p.ParseBody()
	return b, p.Errors()
}

func (p *Parser) Errors() []*diagnostics.DiagnosticError {
	return p.errors
}

func (p *Parser) registerPrefix(t token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[t] = fn
}

func (p *Parser) registerInfix(t token.TokenType, fn infixParseFn) {
	p.infixParseFns[t] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	if p.peekToken.Type == token.ILLEGAL {
		p.errorAt(diagnostics.ErrP004, p.peekToken, "illegal token %q", p.peekToken.Literal)
	}
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) errorAt(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	d := diagnostics.NewError(code, p.source, "", format, args...)
	d.Line = tok.Line + p.lineOffset
	d.Column = tok.Column
	p.errors = append(p.errors, d)
}

func (p *Parser) peekError(t token.TokenType) {
	if p.peekToken.Type == token.ILLEGAL {
		return // already reported
	}
	p.errorAt(diagnostics.ErrP001, p.peekToken, "expected %s, got %s", describe(t), describe(p.peekToken.Type))
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	if tok.Type == token.ILLEGAL {
		return
	}
	p.errorAt(diagnostics.ErrP001, tok, "unexpected %s", describe(tok.Type))
}

func describe(t token.TokenType) string {
	switch t {
	case token.EOF:
		return "end of body"
	case token.IDENT, token.INT, token.STRING:
		return string(t)
	}
	return fmt.Sprintf("'%s'", t)
}

// ParseExpression parses src as a single expression.
func ParseExpression(src string, opts ...Option) (ast.Expression, []*diagnostics.DiagnosticError) {
	p := New(lexer.New(src), opts...)
	e := p.parseExpression(LOWEST)
	if e != nil && !p.expectPeek(token.EOF) {
		e = nil
	}
	return e, p.Errors()
}
