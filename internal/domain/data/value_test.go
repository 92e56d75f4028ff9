package data

import (
	"encoding/json"
	stderrors "errors"
	"math"
	"testing"

	"gotest.tools/v3/assert"

	dberrors "github.com/leengari/jsondb/internal/domain/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"int", 7, int64(7)},
		{"int32", int32(-3), int64(-3)},
		{"uint8", uint8(255), int64(255)},
		{"float32", float32(0.5), 0.5},
		{"string", "x", "x"},
		{"bool", true, true},
		{"json integer", json.Number("42"), int64(42)},
		{"json float", json.Number("4.2"), 4.2},
		{"json exponent", json.Number("1e2"), 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			assert.NilError(t, err)
			assert.Equal(t, got, tt.want)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, in := range []any{
		[]int{1},
		map[string]any{},
		uint64(math.MaxUint64),
		math.NaN(),
		math.Inf(1),
		struct{}{},
	} {
		_, err := Normalize(in)
		assert.Assert(t, stderrors.Is(err, dberrors.ErrMalformedLiteral), "%T: %v", in, err)
	}
}

func TestEqualIsTypeExact(t *testing.T) {
	assert.Assert(t, Equal(int64(30), int64(30)))
	assert.Assert(t, !Equal(int64(30), 30.0))
	assert.Assert(t, !Equal("1", int64(1)))
	assert.Assert(t, !Equal(false, nil))
	assert.Assert(t, Equal(nil, nil))
	assert.Assert(t, Equal(1.5, 1.5))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b any
		cmp  int
		ok   bool
	}{
		{int64(1), int64(2), -1, true},
		{int64(3), 2.5, 1, true},
		{2.0, int64(2), 0, true},
		{"apple", "banana", -1, true},
		{"1", int64(1), 0, false},
		{true, false, 0, false},
		{nil, int64(1), 0, false},
		{int64(math.MaxInt64), int64(math.MaxInt64 - 1), 1, true},
	}

	for _, tt := range tests {
		cmp, ok := Compare(tt.a, tt.b)
		assert.Equal(t, ok, tt.ok, "%v vs %v", tt.a, tt.b)
		assert.Equal(t, cmp, tt.cmp, "%v vs %v", tt.a, tt.b)
	}
}

func TestRowJSONKeepsNumberKinds(t *testing.T) {
	row := Row{"id": int64(1), "score": 2.0, "name": "Alice", "vip": false, "note": nil}

	raw, err := json.Marshal(row)
	assert.NilError(t, err)
	assert.Equal(t, string(raw), `{"id":1,"name":"Alice","note":null,"score":2.0,"vip":false}`)

	var decoded Row
	assert.NilError(t, json.Unmarshal(raw, &decoded))
	assert.Assert(t, decoded.Equal(row))
	assert.Equal(t, decoded["id"], int64(1))
	assert.Equal(t, decoded["score"], 2.0)
}

func TestRowUnmarshalRejectsNested(t *testing.T) {
	var r Row
	err := json.Unmarshal([]byte(`{"a": {"b": 1}}`), &r)
	assert.Assert(t, stderrors.Is(err, dberrors.ErrMalformedLiteral))
}
