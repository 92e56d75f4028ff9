package data

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	dberrors "github.com/leengari/jsondb/internal/domain/errors"
)

// Normalize converts a Go value into one of the tagged value types stored
// in rows: int64, float64, string, bool or nil
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int64:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return uintToInt64(uint64(val))
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return uintToInt64(val)
	case float32:
		return checkFloat(float64(val))
	case float64:
		return checkFloat(val)
	case json.Number:
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, &dberrors.LiteralError{Literal: val.String(), Pos: -1, Reason: "invalid number"}
		}
		return checkFloat(f)
	default:
		return nil, &dberrors.LiteralError{
			Literal: fmt.Sprintf("%v", v),
			Pos:     -1,
			Reason:  fmt.Sprintf("unsupported value type %T", v),
		}
	}
}

func uintToInt64(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, &dberrors.LiteralError{Literal: strconv.FormatUint(u, 10), Pos: -1, Reason: "integer overflows int64"}
	}
	return int64(u), nil
}

func checkFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &dberrors.LiteralError{Literal: fmt.Sprintf("%v", f), Pos: -1, Reason: "NaN and Inf are not storable"}
	}
	return f, nil
}

// Equal is exact type-and-value equality between two normalized values.
// int64(1) and float64(1) are different values.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// Compare orders two normalized values. Numbers compare across int64 and
// float64, strings compare lexically. ok is false for any other pairing.
func Compare(a, b any) (cmp int, ok bool) {
	if as, isStr := a.(string); isStr {
		bs, isStr := b.(string)
		if !isStr {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}

	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if !aNum || !bNum {
		return 0, false
	}

	// both integers: avoid float precision loss
	if ai, isInt := a.(int64); isInt {
		if bi, isInt := b.(int64); isInt {
			switch {
			case ai < bi:
				return -1, true
			case ai > bi:
				return 1, true
			}
			return 0, true
		}
	}

	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	}
	return 0, false
}

// TypeName returns the tag of a normalized value, used in messages
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case bool:
		return "bool"
	}
	return fmt.Sprintf("%T", v)
}

func marshalValue(v any) ([]byte, error) {
	if f, ok := v.(float64); ok {
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEN") {
			s += ".0"
		}
		return []byte(s), nil
	}
	return json.Marshal(v)
}
