package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/weaver/internal/token"
)

// Lexer splits a member body written in the C#-like body syntax of model
// files into tokens.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()
	line, col := l.line, l.column

	switch l.ch {
	case '=':
		tok = l.either('=', token.EQ, token.ASSIGN)
	case '+':
		tok = l.either('=', token.PLUS_ASSIGN, token.PLUS)
	case '-':
		tok = l.either('=', token.MINUS_ASSIGN, token.MINUS)
	case '!':
		tok = l.either('=', token.NOT_EQ, token.BANG)
	case '<':
		tok = l.either('=', token.LTE, token.LT)
	case '>':
		tok = l.either('=', token.GTE, token.GT)
	case '&':
		tok = l.either('&', token.AND, token.ILLEGAL)
	case '|':
		tok = l.either('|', token.OR, token.ILLEGAL)
	case '?':
		tok = l.either('?', token.COALESCE, token.ILLEGAL)
	case '*':
		tok = newToken(token.ASTERISK, l.ch, line, col)
	case '/':
		tok = newToken(token.SLASH, l.ch, line, col)
	case '%':
		tok = newToken(token.PERCENT, l.ch, line, col)
	case ',':
		tok = newToken(token.COMMA, l.ch, line, col)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, line, col)
	case ':':
		tok = newToken(token.COLON, l.ch, line, col)
	case '.':
		tok = newToken(token.DOT, l.ch, line, col)
	case '(':
		tok = newToken(token.LPAREN, l.ch, line, col)
	case ')':
		tok = newToken(token.RPAREN, l.ch, line, col)
	case '{':
		tok = newToken(token.LBRACE, l.ch, line, col)
	case '}':
		tok = newToken(token.RBRACE, l.ch, line, col)
	case '"':
		content, ok := l.readString()
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string", Line: line, Column: col}
		}
		tok = token.Token{Type: token.STRING, Literal: content, Line: line, Column: col}
	case 0:
		return token.Token{Type: token.EOF, Literal: "", Line: line, Column: col}
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(ident), Literal: ident, Line: line, Column: col}
		}
		if isDigit(l.ch) {
			return token.Token{Type: token.INT, Literal: l.readNumber(), Line: line, Column: col}
		}
		tok = newToken(token.ILLEGAL, l.ch, line, col)
	}

	l.readChar()
	return tok
}

// either returns the two-character token two when the next char is next,
// else the one-character token one. A one of ILLEGAL marks a character that
// is only valid doubled.
func (l *Lexer) either(next rune, two, one token.TokenType) token.Token {
	line, col := l.line, l.column
	if l.peekChar() == next {
		ch := l.ch
		l.readChar()
		return token.Token{Type: two, Literal: string(ch) + string(l.ch), Line: line, Column: col}
	}
	return newToken(one, l.ch, line, col)
}

// readString reads a double-quoted literal with C escapes. The closing quote
// is left as the current char.
func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case '"':
			return sb.String(), true
		case 0, '\n':
			return sb.String(), false
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '0':
				sb.WriteRune(0)
			case 0:
				return sb.String(), false
			default:
				sb.WriteRune(l.ch)
			}
		default:
			sb.WriteRune(l.ch)
		}
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return strings.ReplaceAll(l.input[position:l.position], "_", "")
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func newToken(tokenType token.TokenType, ch rune, line, col int) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Line: line, Column: col}
}

// skipWhitespace skips blanks, line comments and block comments. An
// unterminated block comment runs to the end of input.
func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipBlockComment() {
	l.readChar()
	l.readChar()
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		l.readChar()
	}
}
