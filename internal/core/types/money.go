// Package types holds value types used across the domain.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. Prices and totals never touch float64.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits stored and rendered.
const MoneyScale = 2

// MaxQuantity is the largest line quantity the integer columns hold.
const MaxQuantity = math.MaxInt32

var (
	// MaxUnitPrice is the largest price numeric(12,2) holds.
	MaxUnitPrice = decimal.RequireFromString("9999999999.99")
	// MaxTotal is the largest sale total numeric(22,2) holds.
	MaxTotal = decimal.RequireFromString("99999999999999999999.99")
)

// Zero returns a zero amount.
func Zero() Money {
	return decimal.Zero
}

// MustMoney panics on malformed input. Constants and tests only.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseMoney accepts a JSON number or a JSON string holding a number.
// Empty strings, null and non-numeric text are rejected.
func ParseMoney(raw json.RawMessage) (Money, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Zero, fmt.Errorf("decode amount: %w", err)
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return decimal.Zero, fmt.Errorf("empty amount")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// HasMoneyScale reports whether m has no digits beyond MoneyScale.
// "1.50" and "1.500" qualify, "0.005" does not.
func HasMoneyScale(m Money) bool {
	return m.Equal(m.Round(MoneyScale))
}

// RoundMoney rounds half away from zero to MoneyScale digits.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// FormatMoney renders an amount with two fractional digits ("400.00").
func FormatMoney(m Money) string {
	return m.StringFixed(MoneyScale)
}

// LineTotal is quantity * unitPrice.
func LineTotal(quantity int, unitPrice Money) Money {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
