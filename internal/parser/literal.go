package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leengari/jsondb/internal/domain/data"
	"github.com/leengari/jsondb/internal/domain/errors"
	"github.com/leengari/jsondb/internal/parser/ast"
	"github.com/leengari/jsondb/internal/parser/lexer"
)

// literalParser turns the token stream of one literal fragment into
// structured values. Nothing in the input is ever executed.
type literalParser struct {
	input   string
	tokens  []lexer.Token
	curPos  int
	curTok  lexer.Token
	peekTok lexer.Token
}

func newLiteralParser(input string) (*literalParser, error) {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		if illegal, ok := err.(*lexer.IllegalTokenError); ok {
			return nil, &errors.LiteralError{Literal: input, Pos: illegal.Token.Pos, Reason: illegal.Reason}
		}
		return nil, &errors.LiteralError{Literal: input, Pos: -1, Reason: err.Error()}
	}

	p := &literalParser{input: input, tokens: tokens}
	// Read two tokens to set curTok and peekTok
	p.nextToken()
	p.nextToken()
	return p, nil
}

func (p *literalParser) nextToken() {
	p.curTok = p.peekTok
	if p.curPos < len(p.tokens) {
		p.peekTok = p.tokens[p.curPos]
		p.curPos++
	} else {
		p.peekTok = lexer.Token{Type: lexer.EOF, Pos: len(p.input)}
	}
}

func (p *literalParser) fail(format string, args ...any) error {
	pos := p.curTok.Pos
	if p.curTok.Type == lexer.EOF {
		pos = len(p.input)
	}
	return &errors.LiteralError{Literal: p.input, Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *literalParser) describe() string {
	if p.curTok.Type == lexer.EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", p.curTok.Literal)
}

func (p *literalParser) expect(t lexer.TokenType) error {
	if p.curTok.Type != t {
		return p.fail("expected %s, got %s", t, p.describe())
	}
	p.nextToken()
	return nil
}

func (p *literalParser) expectEnd() error {
	if p.curTok.Type != lexer.EOF {
		return p.fail("unexpected %s after literal", p.describe())
	}
	return nil
}

// parseMapping: { key: value, ... } with quoted or bare keys
func (p *literalParser) parseMapping() (data.Row, error) {
	if err := p.expect(lexer.BRACE_OPEN); err != nil {
		return nil, err
	}

	row := make(data.Row)
	for p.curTok.Type != lexer.BRACE_CLOSE {
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		if _, dup := row[key]; dup {
			return nil, p.fail("duplicate key %q", key)
		}
		p.nextToken()

		if err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		row[key] = val

		if p.curTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		if p.curTok.Type != lexer.BRACE_CLOSE {
			return nil, p.fail("expected , or }, got %s", p.describe())
		}
	}
	p.nextToken()
	return row, nil
}

// parseAssignments: col = value, col2 = value2
func (p *literalParser) parseAssignments() (data.Row, error) {
	row := make(data.Row)
	for {
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		if _, dup := row[key]; dup {
			return nil, p.fail("column %q assigned twice", key)
		}
		p.nextToken()

		if p.curTok.Type != lexer.EQUALS || p.curTok.Literal != "=" {
			return nil, p.fail("expected =, got %s", p.describe())
		}
		p.nextToken()

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		row[key] = val

		if p.curTok.Type != lexer.COMMA {
			return row, nil
		}
		p.nextToken()
	}
}

// parseTuple: (value, value, ...)
func (p *literalParser) parseTuple() ([]any, error) {
	if err := p.expect(lexer.PAREN_OPEN); err != nil {
		return nil, err
	}
	if p.curTok.Type == lexer.PAREN_CLOSE {
		return nil, p.fail("empty value list")
	}

	var values []any
	for p.curTok.Type != lexer.PAREN_CLOSE {
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, val)

		if p.curTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		if p.curTok.Type != lexer.PAREN_CLOSE {
			return nil, p.fail("expected , or ), got %s", p.describe())
		}
	}
	p.nextToken()
	return values, nil
}

// parseComparisons: col op value [AND col op value]*
func (p *literalParser) parseComparisons() (data.Filter, error) {
	var filter data.Filter
	for {
		col, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		p.nextToken()

		op, ok := data.ParseOperator(p.curTok.Literal)
		if !ok || !isComparisonOperator(p.curTok.Type) {
			return nil, p.fail("expected comparison operator, got %s", p.describe())
		}
		p.nextToken()

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		filter = append(filter, data.Comparison{Column: col, Op: op, Value: val})

		if p.curTok.Type != lexer.AND {
			return filter, nil
		}
		p.nextToken()
	}
}

// parseKey reads a column name: a bare identifier or a quoted string.
// The cursor stays on the key token.
func (p *literalParser) parseKey() (string, error) {
	switch p.curTok.Type {
	case lexer.IDENTIFIER, lexer.STRING:
		if p.curTok.Literal == "" {
			return "", p.fail("empty column name")
		}
		return p.curTok.Literal, nil
	default:
		return "", p.fail("expected column name, got %s", p.describe())
	}
}

// parseValue reads one scalar and advances past it
func (p *literalParser) parseValue() (any, error) {
	tok := p.curTok
	switch tok.Type {
	case lexer.STRING:
		p.nextToken()
		return tok.Literal, nil
	case lexer.NUMBER:
		val, err := parseNumber(tok.Literal)
		if err != nil {
			return nil, p.fail("%v", err)
		}
		p.nextToken()
		return val, nil
	case lexer.TRUE:
		p.nextToken()
		return true, nil
	case lexer.FALSE:
		p.nextToken()
		return false, nil
	case lexer.NULL:
		p.nextToken()
		return nil, nil
	case lexer.IDENTIFIER:
		return nil, p.fail("bare word %q is not a value (quote strings)", tok.Literal)
	default:
		return nil, p.fail("expected a value, got %s", p.describe())
	}
}

// parseNumber keeps integral text as int64 and everything else as float64
func parseNumber(text string) (any, error) {
	if !strings.ContainsAny(text, ".eE") {
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %s", text)
		}
		return i, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %s", text)
	}
	return f, nil
}

func isComparisonOperator(t lexer.TokenType) bool {
	return t == lexer.EQUALS ||
		t == lexer.NOT_EQUAL ||
		t == lexer.LESS_THAN ||
		t == lexer.LESS_EQUAL ||
		t == lexer.GREATER_THAN ||
		t == lexer.GREATER_EQUAL
}

// ParseMapping parses a mapping literal such as {'id': 1, name: "Alice"}
func ParseMapping(text string) (data.Row, error) {
	p, err := newLiteralParser(text)
	if err != nil {
		return nil, err
	}
	row, err := p.parseMapping()
	if err != nil {
		return nil, err
	}
	return row, p.expectEnd()
}

// ParseAssignments parses the SET part of an UPDATE: either an assignment
// list (name = 'Alice', age = 31) or a mapping literal
func ParseAssignments(text string) (data.Row, error) {
	p, err := newLiteralParser(text)
	if err != nil {
		return nil, err
	}

	var row data.Row
	if p.curTok.Type == lexer.BRACE_OPEN {
		row, err = p.parseMapping()
	} else {
		row, err = p.parseAssignments()
	}
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, p.fail("no assignments")
	}
	return row, p.expectEnd()
}

// ParseValues parses the VALUES part of an INSERT: a mapping literal or a
// positional tuple
func ParseValues(text string) (*ast.Values, error) {
	p, err := newLiteralParser(text)
	if err != nil {
		return nil, err
	}

	values := &ast.Values{}
	switch p.curTok.Type {
	case lexer.BRACE_OPEN:
		values.Row, err = p.parseMapping()
	case lexer.PAREN_OPEN:
		values.Tuple, err = p.parseTuple()
	default:
		return nil, p.fail("expected { or (, got %s", p.describe())
	}
	if err != nil {
		return nil, err
	}
	return values, p.expectEnd()
}

// ParseCondition parses a WHERE clause: a mapping literal (equality on
// every key) or comparisons joined by AND
func ParseCondition(text string) (data.Filter, error) {
	p, err := newLiteralParser(text)
	if err != nil {
		return nil, err
	}

	var filter data.Filter
	if p.curTok.Type == lexer.BRACE_OPEN {
		var row data.Row
		row, err = p.parseMapping()
		filter = data.Condition(row).Filter()
	} else {
		filter, err = p.parseComparisons()
	}
	if err != nil {
		return nil, err
	}
	return filter, p.expectEnd()
}
