package sqlexec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindDecimal
	KindString
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single column value read from a result set.
//
// The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	d    decimal.Decimal
	s    string
	t    time.Time
}

func NullValue() Value { return Value{} }

func IntValue(v int64) Value { return Value{kind: KindInteger, i: v} }

func DecimalValue(v decimal.Decimal) Value { return Value{kind: KindDecimal, d: v} }

func StringValue(v string) Value { return Value{kind: KindString, s: v} }

func DateValue(v time.Time) Value { return Value{kind: KindDate, t: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt64 returns the value as an integer. Decimals convert when they have no
// fractional part; everything else reports false.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInteger:
		return v.i, true
	case KindDecimal:
		if v.d.IsInteger() {
			return v.d.IntPart(), true
		}
	case KindString:
		if n, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// AsDecimal returns integers and decimals as a decimal.Decimal, and strings
// when they parse as one.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindInteger:
		return decimal.NewFromInt(v.i), true
	case KindDecimal:
		return v.d, true
	case KindString:
		if d, err := decimal.NewFromString(v.s); err == nil {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

// AsString reports the string variant only; use String for a rendering of
// any variant.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsTime() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.t, true
}

// Any unwraps the variant into nil, int64, decimal.Decimal, string or
// time.Time.
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindDecimal:
		return v.d
	case KindString:
		return v.s
	case KindDate:
		return v.t
	default:
		return nil
	}
}

// Equal compares kind and payload. Decimals compare numerically and dates by
// instant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindDecimal:
		return v.d.Equal(o.d)
	case KindString:
		return v.s == o.s
	case KindDate:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindDecimal:
		return v.d.String()
	case KindString:
		return v.s
	case KindDate:
		return v.t.Format(time.RFC3339)
	default:
		return "NULL"
	}
}

// MarshalJSON encodes decimals as bare JSON numbers so clients see the same
// shape the database returned.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInteger:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindDecimal:
		return []byte(v.d.String()), nil
	case KindString:
		return json.Marshal(v.s)
	case KindDate:
		return v.t.MarshalJSON()
	default:
		return nil, fmt.Errorf("sqlexec: cannot marshal value of kind %s", v.kind)
	}
}
