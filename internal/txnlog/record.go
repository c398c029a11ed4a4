package txnlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrAmountConversion is returned when an amount cannot be turned into a number.
var ErrAmountConversion = errors.New("amount conversion failed")

// Record is one parsed TXN/AMT/ID triple.
type Record struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	ID     string          `json:"id"`
}

// Float64 returns the amount as a float64. Exact for the amounts the grammar
// admits up to 15 significant digits.
func (r Record) Float64() float64 {
	return r.Amount.InexactFloat64()
}

// MarshalJSON writes the amount as a JSON number with two decimal places.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string      `json:"type"`
		Amount json.Number `json:"amount"`
		ID     string      `json:"id"`
	}{r.Type, json.Number(r.Amount.StringFixed(2)), r.ID})
}

func (r Record) String() string {
	return fmt.Sprintf("(%s, %s, %s)", r.Type, r.Amount.StringFixed(2), r.ID)
}

// StripGrouping removes comma grouping separators from a numeric literal.
func StripGrouping(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

// ParseAmount parses a plain decimal literal such as "1250.50" or "500".
func ParseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrAmountConversion)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrAmountConversion, s, err)
	}
	return d, nil
}

// NormalizeAmount strips grouping separators and parses the result.
func NormalizeAmount(s string) (decimal.Decimal, error) {
	return ParseAmount(StripGrouping(s))
}
