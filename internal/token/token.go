package token

import "fmt"

type TokenType string

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q at %d:%d", t.Type, t.Literal, t.Line, t.Column)
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT  TokenType = "IDENT"
	INT    TokenType = "INT"
	STRING TokenType = "STRING"

	// Operators
	ASSIGN       TokenType = "="
	PLUS_ASSIGN  TokenType = "+="
	MINUS_ASSIGN TokenType = "-="
	PLUS         TokenType = "+"
	MINUS        TokenType = "-"
	ASTERISK     TokenType = "*"
	SLASH        TokenType = "/"
	PERCENT      TokenType = "%"
	BANG         TokenType = "!"
	EQ           TokenType = "=="
	NOT_EQ       TokenType = "!="
	LT           TokenType = "<"
	GT           TokenType = ">"
	LTE          TokenType = "<="
	GTE          TokenType = ">="
	AND          TokenType = "&&"
	OR           TokenType = "||"
	COALESCE     TokenType = "??"

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	COLON     TokenType = ":"
	DOT       TokenType = "."
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"

	// Keywords
	VAR     TokenType = "var"
	RETURN  TokenType = "return"
	IF      TokenType = "if"
	ELSE    TokenType = "else"
	WHILE   TokenType = "while"
	FOREACH TokenType = "foreach"
	IN      TokenType = "in"
	AWAIT   TokenType = "await"
	YIELD   TokenType = "yield"
	BREAK   TokenType = "break"
	GOTO    TokenType = "goto"
	TRUE    TokenType = "true"
	FALSE   TokenType = "false"
	NULL    TokenType = "null"
	THIS    TokenType = "this"
	BASE    TokenType = "base"
	DEFAULT TokenType = "default"
	PROCEED TokenType = "proceed"
	INVOKE  TokenType = "invoke"
)

var keywords = map[string]TokenType{
	"var":     VAR,
	"return":  RETURN,
	"if":      IF,
	"else":    ELSE,
	"while":   WHILE,
	"foreach": FOREACH,
	"in":      IN,
	"await":   AWAIT,
	"yield":   YIELD,
	"break":   BREAK,
	"goto":    GOTO,
	"true":    TRUE,
	"false":   FALSE,
	"null":    NULL,
	"this":    THIS,
	"base":    BASE,
	"default": DEFAULT,
	"proceed": PROCEED,
	"invoke":  INVOKE,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
