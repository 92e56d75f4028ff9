// Package lexer tokenizes the literal fragments of a query: value mappings,
// assignment lists, tuples and conditions. Statement keywords are not
// tokenized here; the query splitter handles them.
package lexer

import (
	"fmt"
	"strings"
)

type TokenType int

const (
	// Special
	ILLEGAL TokenType = iota
	EOF

	// Literals
	IDENTIFIER // bare key or column name
	STRING     // 'value' or "value"
	NUMBER     // 123, -4, 1.23, 6.02e23

	// Keywords
	AND
	TRUE
	FALSE
	NULL

	// Operators & Punctuation
	ASTERISK      // *
	COMMA         // ,
	COLON         // :
	PAREN_OPEN    // (
	PAREN_CLOSE   // )
	BRACE_OPEN    // {
	BRACE_CLOSE   // }
	EQUALS        // = or ==
	NOT_EQUAL     // != or <>
	LESS_THAN     // <
	LESS_EQUAL    // <=
	GREATER_THAN  // >
	GREATER_EQUAL // >=
)

var tokenNames = map[TokenType]string{
	ILLEGAL:       "ILLEGAL",
	EOF:           "EOF",
	IDENTIFIER:    "IDENTIFIER",
	STRING:        "STRING",
	NUMBER:        "NUMBER",
	AND:           "AND",
	TRUE:          "TRUE",
	FALSE:         "FALSE",
	NULL:          "NULL",
	ASTERISK:      "*",
	COMMA:         ",",
	COLON:         ":",
	PAREN_OPEN:    "(",
	PAREN_CLOSE:   ")",
	BRACE_OPEN:    "{",
	BRACE_CLOSE:   "}",
	EQUALS:        "=",
	NOT_EQUAL:     "!=",
	LESS_THAN:     "<",
	LESS_EQUAL:    "<=",
	GREATER_THAN:  ">",
	GREATER_EQUAL: ">=",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords are matched case-insensitively, so Python-style True/False/None
// are accepted alongside true/false/null
var keywords = map[string]TokenType{
	"AND":   AND,
	"TRUE":  TRUE,
	"FALSE": FALSE,
	"NULL":  NULL,
	"NONE":  NULL,
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset in the input
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q)", t.Type, t.Literal)
}

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition += 1
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	line, col, pos := l.line, l.column, l.position

	switch l.ch {
	case '*':
		tok = newToken(ASTERISK, l.ch)
	case ',':
		tok = newToken(COMMA, l.ch)
	case ':':
		tok = newToken(COLON, l.ch)
	case '(':
		tok = newToken(PAREN_OPEN, l.ch)
	case ')':
		tok = newToken(PAREN_CLOSE, l.ch)
	case '{':
		tok = newToken(BRACE_OPEN, l.ch)
	case '}':
		tok = newToken(BRACE_CLOSE, l.ch)
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: EQUALS, Literal: "=="}
		} else {
			tok = newToken(EQUALS, l.ch)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: NOT_EQUAL, Literal: "!="}
		} else {
			tok = newToken(ILLEGAL, l.ch)
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: LESS_EQUAL, Literal: "<="}
		case '>':
			l.readChar()
			tok = Token{Type: NOT_EQUAL, Literal: "<>"}
		default:
			tok = newToken(LESS_THAN, l.ch)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: GREATER_EQUAL, Literal: ">="}
		} else {
			tok = newToken(GREATER_THAN, l.ch)
		}
	case '\'', '"':
		lit, ok := l.readString(l.ch)
		tok = Token{Type: STRING, Literal: lit}
		if !ok {
			tok.Type = ILLEGAL
		}
		tok.Pos, tok.Line, tok.Column = pos, line, col
		return tok
	case 0:
		tok.Literal = ""
		tok.Type = EOF
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			tok.Pos, tok.Line, tok.Column = pos, line, col
			return tok
		} else if isDigit(l.ch) || (isSign(l.ch) && (isDigit(l.peekChar()) || l.peekChar() == '.')) || (l.ch == '.' && isDigit(l.peekChar())) {
			tok.Type = NUMBER
			tok.Literal = l.readNumber()
			tok.Pos, tok.Line, tok.Column = pos, line, col
			return tok
		} else {
			tok = newToken(ILLEGAL, l.ch)
		}
	}

	tok.Pos, tok.Line, tok.Column = pos, line, col
	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber consumes an optional sign, digits, an optional fraction and an
// optional exponent. Validation is left to strconv in the parser.
func (l *Lexer) readNumber() string {
	position := l.position
	if isSign(l.ch) {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if isSign(l.ch) {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position]
}

// readString reads a quoted string opened by quote. Backslash escapes the
// next character; \n, \t and \r are translated. ok is false when the
// closing quote is missing.
func (l *Lexer) readString(quote byte) (lit string, ok bool) {
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0:
			return sb.String(), false
		case quote:
			l.readChar() // consume the closing quote
			return sb.String(), true
		case '\\':
			l.readChar()
			switch l.ch {
			case 0:
				return sb.String(), false
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(l.ch)
			}
		default:
			if l.ch == '\n' {
				l.line++
				l.column = 0
			}
			sb.WriteByte(l.ch)
		}
	}
}

func newToken(tokenType TokenType, ch byte) Token {
	return Token{Type: tokenType, Literal: string(ch)}
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToUpper(ident)]; ok {
		return tok
	}
	return IDENTIFIER
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isSign(ch byte) bool {
	return ch == '-' || ch == '+'
}

// Tokenize scans the entire input, stopping at the first illegal token
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
		if tok.Type == ILLEGAL {
			if q := input[tok.Pos]; q == '\'' || q == '"' {
				return nil, &IllegalTokenError{Token: tok, Reason: "unterminated string"}
			}
			return nil, &IllegalTokenError{Token: tok, Reason: "unexpected character"}
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// IllegalTokenError reports input the lexer cannot tokenize
type IllegalTokenError struct {
	Token  Token
	Reason string
}

func (e *IllegalTokenError) Error() string {
	return fmt.Sprintf("%s at line %d, col %d: %q", e.Reason, e.Token.Line, e.Token.Column, e.Token.Literal)
}
