package valueobject

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount coerces a loosely typed price into a decimal.
//
// Upstream catalog records and old persisted carts carry prices as JSON
// numbers, numeric strings, or not at all. Anything that is not a finite
// number (nil, "", "abc", NaN, ±Inf, bools, objects) becomes zero, so callers
// can sum the result without checking.
func ParseAmount(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero
		}
		return *x
	case Money:
		return x.Amount()
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int8:
		return decimal.NewFromInt(int64(x))
	case int16:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return fromUint(uint64(x))
	case uint16:
		return fromUint(uint64(x))
	case uint32:
		return fromUint(uint64(x))
	case uint64:
		return fromUint(x)
	case json.Number:
		return fromString(string(x))
	case string:
		return fromString(x)
	case []byte:
		return fromString(string(x))
	case json.RawMessage:
		return fromRaw(x)
	default:
		return decimal.Zero
	}
}

// ParseAmountFloat is ParseAmount for callers that keep prices as float64
func ParseAmountFloat(v any) float64 {
	f, _ := ParseAmount(v).Float64()
	return f
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func fromUint(u uint64) decimal.Decimal {
	d, _ := decimal.NewFromString(strconv.FormatUint(u, 10))
	return d
}

func fromString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	// ParseFloat accepts "NaN" and "Inf", so the finite check matters here.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NewFromFloat(f)
	}
	return d
}

// fromRaw handles a raw JSON value: a number or a quoted numeric string
func fromRaw(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return fromString(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return fromString(string(n))
	}
	return decimal.Zero
}
