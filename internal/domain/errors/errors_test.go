package errors

import (
	"errors"
	"io/fs"
	"testing"

	"gotest.tools/v3/assert"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		err    error
		target error
	}{
		{&TableNotFoundError{TableName: "users"}, ErrTableNotFound},
		{&TableExistsError{TableName: "users"}, ErrTableAlreadyExists},
		{&SchemaMismatchError{Table: "users", Missing: []string{"age"}}, ErrSchemaMismatch},
		{NewPrimaryKeyViolation("users", "id", int64(1)), ErrDuplicateKey},
		{&ColumnNotFoundError{TableName: "users", ColumnName: "email"}, ErrUnknownColumn},
		{&QueryError{Query: "DROP", Reason: "no"}, ErrUnsupportedQuery},
		{&LiteralError{Literal: "@", Pos: 0, Reason: "bad"}, ErrMalformedLiteral},
		{&IOError{Op: "write table", Path: "users.json", Err: fs.ErrPermission}, ErrIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.target.Error(), func(t *testing.T) {
			assert.Assert(t, errors.Is(tt.err, tt.target))
		})
	}
}

func TestIOErrorKeepsCause(t *testing.T) {
	err := &IOError{Op: "write snapshot", Path: "db.json", Err: fs.ErrPermission}
	assert.Assert(t, errors.Is(err, fs.ErrPermission))
	assert.Equal(t, err.Error(), "write snapshot db.json: permission denied")
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		(&SchemaMismatchError{Table: "users", Missing: []string{"age"}, Extra: []string{"email"}}).Error(),
		"schema mismatch in users - missing columns: age - unexpected columns: email")
	assert.Equal(t,
		NewPrimaryKeyViolation("users", "id", int64(1)).Error(),
		"constraint violation in users.id - (primary_key) - value=1 - duplicate primary key")
	assert.Equal(t,
		(&LiteralError{Literal: "x", Pos: -1, Reason: "bad"}).Error(),
		`malformed literal "x": bad`)
}
