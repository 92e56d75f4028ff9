// Package parser turns a textual query into an ast.Query.
//
// Statements are split on the first whole-word occurrence of the fixed
// keywords FROM, WHERE, VALUES and SET (case-insensitive). This handles one
// clause of each kind; keyword text inside a literal or repeated clauses
// will mis-parse. The clause bodies go through a literal parser that only
// accepts scalar values, mappings, assignment lists, tuples and
// comparisons.
package parser

import (
	"regexp"
	"strings"

	"github.com/leengari/jsondb/internal/domain/errors"
	"github.com/leengari/jsondb/internal/parser/ast"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	keywordPatterns = map[string]*regexp.Regexp{
		"FROM":   regexp.MustCompile(`(?i)\bFROM\b`),
		"WHERE":  regexp.MustCompile(`(?i)\bWHERE\b`),
		"VALUES": regexp.MustCompile(`(?i)\bVALUES\b`),
		"SET":    regexp.MustCompile(`(?i)\bSET\b`),
	}
)

// Parse parses one statement. A trailing semicolon is ignored.
func Parse(query string) (*ast.Query, error) {
	text := strings.TrimSpace(query)
	text = strings.TrimSpace(strings.TrimSuffix(text, ";"))
	if text == "" {
		return nil, &errors.QueryError{Query: query, Reason: "empty query"}
	}

	verb, rest := splitFirstWord(text)
	switch ast.Kind(strings.ToUpper(verb)) {
	case ast.Select:
		return parseSelect(query, rest)
	case ast.Insert:
		return parseInsert(query, rest)
	case ast.Update:
		return parseUpdate(query, rest)
	case ast.Delete:
		return parseDelete(query, rest)
	default:
		return nil, &errors.QueryError{Query: query, Reason: "expected SELECT, INSERT, UPDATE or DELETE"}
	}
}

// SELECT <cols> FROM <table> [WHERE <expr>]
func parseSelect(query, rest string) (*ast.Query, error) {
	colsText, afterFrom, ok := splitKeyword(rest, "FROM")
	if !ok {
		return nil, &errors.QueryError{Query: query, Reason: "SELECT requires FROM"}
	}

	columns, err := parseColumns(query, colsText)
	if err != nil {
		return nil, err
	}

	tableText, whereText, hasWhere := splitKeyword(afterFrom, "WHERE")
	table, err := parseTableName(query, tableText)
	if err != nil {
		return nil, err
	}

	q := &ast.Query{Kind: ast.Select, Table: table, Columns: columns}
	if hasWhere {
		if q.Where, err = ParseCondition(whereText); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// INSERT INTO <table> VALUES <value-literal>
func parseInsert(query, rest string) (*ast.Query, error) {
	into, rest := splitFirstWord(rest)
	if !strings.EqualFold(into, "INTO") {
		return nil, &errors.QueryError{Query: query, Reason: "INSERT requires INTO"}
	}

	tableText, valuesText, ok := splitKeyword(rest, "VALUES")
	if !ok {
		return nil, &errors.QueryError{Query: query, Reason: "INSERT requires VALUES"}
	}

	table, err := parseTableName(query, tableText)
	if err != nil {
		return nil, err
	}

	values, err := ParseValues(valuesText)
	if err != nil {
		return nil, err
	}
	return &ast.Query{Kind: ast.Insert, Table: table, Values: values}, nil
}

// UPDATE <table> SET <assignment-literal> [WHERE <expr>]
func parseUpdate(query, rest string) (*ast.Query, error) {
	tableText, afterSet, ok := splitKeyword(rest, "SET")
	if !ok {
		return nil, &errors.QueryError{Query: query, Reason: "UPDATE requires SET"}
	}

	table, err := parseTableName(query, tableText)
	if err != nil {
		return nil, err
	}

	setText, whereText, hasWhere := splitKeyword(afterSet, "WHERE")
	set, err := ParseAssignments(setText)
	if err != nil {
		return nil, err
	}

	q := &ast.Query{Kind: ast.Update, Table: table, Set: set}
	if hasWhere {
		if q.Where, err = ParseCondition(whereText); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// DELETE FROM <table> [WHERE <expr>]
func parseDelete(query, rest string) (*ast.Query, error) {
	from, rest := splitFirstWord(rest)
	if !strings.EqualFold(from, "FROM") {
		return nil, &errors.QueryError{Query: query, Reason: "DELETE requires FROM"}
	}

	tableText, whereText, hasWhere := splitKeyword(rest, "WHERE")
	table, err := parseTableName(query, tableText)
	if err != nil {
		return nil, err
	}

	q := &ast.Query{Kind: ast.Delete, Table: table}
	if hasWhere {
		if q.Where, err = ParseCondition(whereText); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// splitKeyword splits s around the first whole-word occurrence of keyword
func splitKeyword(s, keyword string) (before, after string, found bool) {
	loc := keywordPatterns[keyword].FindStringIndex(s)
	if loc == nil {
		return strings.TrimSpace(s), "", false
	}
	return strings.TrimSpace(s[:loc[0]]), strings.TrimSpace(s[loc[1]:]), true
}

func splitFirstWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t\r\n")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

func parseTableName(query, text string) (string, error) {
	if text == "" {
		return "", &errors.QueryError{Query: query, Reason: "missing table name"}
	}
	if !identifierPattern.MatchString(text) {
		return "", &errors.QueryError{Query: query, Reason: "invalid table name " + text}
	}
	return text, nil
}

// parseColumns returns nil for *
func parseColumns(query, text string) ([]string, error) {
	if text == "*" {
		return nil, nil
	}
	if text == "" {
		return nil, &errors.QueryError{Query: query, Reason: "missing column list"}
	}

	parts := strings.Split(text, ",")
	columns := make([]string, 0, len(parts))
	for _, part := range parts {
		col := strings.TrimSpace(part)
		if !identifierPattern.MatchString(col) {
			return nil, &errors.QueryError{Query: query, Reason: "invalid column name " + col}
		}
		columns = append(columns, col)
	}
	return columns, nil
}
