package sqlexec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction says whether a binding feeds a value into the statement or
// receives one from it.
type Direction uint8

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// Type is the declared storage type of a binding. Text input declared
// TypeDecimal or TypeInteger is parsed into that type before it reaches the
// driver; other input values are passed as given. Output values are converted
// to the declared type when the conversion is lossless.
type Type uint8

const (
	TypeAny Type = iota
	TypeText
	TypeInteger
	TypeDecimal
	TypeDate
)

func (t Type) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeDate:
		return "date"
	default:
		return "any"
	}
}

// Binding ties a named placeholder to a value (In) or to a slot the statement
// fills (Out).
type Binding struct {
	Name      string
	Type      Type
	Direction Direction
	Value     any
}

// Input binds value to :name.
func Input(name string, typ Type, value any) Binding {
	return Binding{Name: normalizeName(name), Type: typ, Direction: In, Value: value}
}

// Output declares :name as a value produced by the statement.
func Output(name string, typ Type) Binding {
	return Binding{Name: normalizeName(name), Type: typ, Direction: Out}
}

// normalizeName accepts both "team_id" and ":team_id".
func normalizeName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), ":")
}

// ConvertInput parses text into typ: decimal text becomes a decimal.Decimal
// and integer text an int64. Values are unwrapped; anything else is returned
// unchanged.
func ConvertInput(typ Type, value any) (any, error) {
	if v, ok := value.(Value); ok {
		value = v.Any()
	}

	text, ok := value.(string)
	if !ok {
		return value, nil
	}

	switch typ {
	case TypeDecimal:
		d, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("%q is not a decimal", text)
		}
		return d, nil
	case TypeInteger:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", text)
		}
		return n, nil
	}
	return text, nil
}

// driverValue is the value handed to database/sql for an input binding.
func (b Binding) driverValue() (any, error) {
	v, err := ConvertInput(b.Type, b.Value)
	if err != nil {
		return nil, NewConstructionError("binding :%s: %v", b.Name, err)
	}
	return v, nil
}
