package sqlexec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// convertValue maps a scanned driver value onto a Value. dbType is the
// column's DatabaseTypeName and decides between integer/decimal and
// string/uuid where the driver value alone is ambiguous.
func convertValue(src any, dbType string) Value {
	if src == nil {
		return NullValue()
	}
	exact := isExactNumeric(dbType)

	switch x := src.(type) {
	case int64:
		if exact {
			return DecimalValue(decimal.NewFromInt(x))
		}
		return IntValue(x)
	case int:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int16:
		return IntValue(int64(x))
	case int8:
		return IntValue(int64(x))
	case uint64:
		return unsignedValue(x)
	case uint:
		return unsignedValue(uint64(x))
	case uint32:
		return IntValue(int64(x))
	case uint16:
		return IntValue(int64(x))
	case uint8:
		return IntValue(int64(x))
	case bool:
		if x {
			return IntValue(1)
		}
		return IntValue(0)
	case float64:
		return DecimalValue(decimal.NewFromFloat(x))
	case float32:
		return DecimalValue(decimal.NewFromFloat32(x))
	case decimal.Decimal:
		return DecimalValue(x)
	case time.Time:
		return DateValue(x)
	case [16]byte:
		return StringValue(uuid.UUID(x).String())
	case []byte:
		return convertText(string(x), x, dbType, exact)
	case string:
		return convertText(x, nil, dbType, exact)
	case fmt.Stringer:
		return StringValue(x.String())
	default:
		return StringValue(fmt.Sprint(x))
	}
}

// unsignedValue keeps values above math.MaxInt64 exact as decimals.
func unsignedValue(x uint64) Value {
	if x <= math.MaxInt64 {
		return IntValue(int64(x))
	}
	return DecimalValue(decimal.RequireFromString(strconv.FormatUint(x, 10)))
}

func convertText(s string, raw []byte, dbType string, exact bool) Value {
	if exact {
		if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
			return DecimalValue(d)
		}
	}
	if len(raw) == 16 && strings.EqualFold(dbType, "UUID") {
		if id, err := uuid.FromBytes(raw); err == nil {
			return StringValue(id.String())
		}
	}
	return StringValue(s)
}

// isExactNumeric reports whether a database type name denotes a fixed-point
// column, e.g. NUMERIC, DECIMAL(12,2) or MONEY.
func isExactNumeric(dbType string) bool {
	base := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case "NUMERIC", "DECIMAL", "DEC", "NUMBER", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}
