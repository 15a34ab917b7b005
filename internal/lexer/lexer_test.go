package lexer

import (
	"testing"

	"github.com/funvibe/weaver/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `var r = a += 1_000;
x ?? "s\n" && !y // trailing
/* block */ z`

	tests := []struct {
		typ     token.TokenType
		literal string
		line    int
		column  int
	}{
		{token.VAR, "var", 1, 1},
		{token.IDENT, "r", 1, 5},
		{token.ASSIGN, "=", 1, 7},
		{token.IDENT, "a", 1, 9},
		{token.PLUS_ASSIGN, "+=", 1, 11},
		{token.INT, "1000", 1, 14},
		{token.SEMICOLON, ";", 1, 19},
		{token.IDENT, "x", 2, 1},
		{token.COALESCE, "??", 2, 3},
		{token.STRING, "s\n", 2, 6},
		{token.AND, "&&", 2, 12},
		{token.BANG, "!", 2, 15},
		{token.IDENT, "y", 2, 16},
		{token.IDENT, "z", 3, 13},
		{token.EOF, "", 3, 14},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.literal {
			t.Fatalf("tests[%d] - got %s, want %s %q", i, tok, tt.typ, tt.literal)
		}
		if tok.Line != tt.line || tok.Column != tt.column {
			t.Fatalf("tests[%d] - %s at %d:%d, want %d:%d", i, tok.Literal, tok.Line, tok.Column, tt.line, tt.column)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `== != <= >= < > || - -= * / % , : . ( ) { }`
	want := []token.TokenType{
		token.EQ, token.NOT_EQ, token.LTE, token.GTE, token.LT, token.GT, token.OR,
		token.MINUS, token.MINUS_ASSIGN, token.ASTERISK, token.SLASH, token.PERCENT,
		token.COMMA, token.COLON, token.DOT, token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.EOF,
	}
	l := New(input)
	for i, typ := range want {
		if tok := l.NextToken(); tok.Type != typ {
			t.Fatalf("tests[%d] - got %s, want %s", i, tok, typ)
		}
	}
}

func TestKeywords(t *testing.T) {
	for _, kw := range []string{"return", "if", "else", "while", "foreach", "in", "await", "yield", "break", "goto",
		"true", "false", "null", "this", "base", "default", "proceed", "invoke"} {
		tok := New(kw).NextToken()
		if string(tok.Type) != kw {
			t.Errorf("%s lexed as %s", kw, tok.Type)
		}
	}
	if tok := New("proceeding").NextToken(); tok.Type != token.IDENT {
		t.Errorf("proceeding lexed as %s", tok.Type)
	}
}

func TestIllegal(t *testing.T) {
	tests := []struct {
		input   string
		literal string
		column  int
	}{
		{"&", "&", 1},
		{"a | b", "|", 3},
		{"?", "?", 1},
		{"#", "#", 1},
		{`"open`, "unterminated string", 1},
		{"x = \"line\nbreak\"", "unterminated string", 5},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l := New(tt.input)
			for {
				tok := l.NextToken()
				if tok.Type == token.EOF {
					t.Fatal("no illegal token")
				}
				if tok.Type != token.ILLEGAL {
					continue
				}
				if tok.Literal != tt.literal || tok.Column != tt.column {
					t.Errorf("got %s, want %q at column %d", tok, tt.literal, tt.column)
				}
				return
			}
		})
	}
}
