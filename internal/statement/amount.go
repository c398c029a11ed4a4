package statement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerscan/statement-tools/internal/txnlog"
)

// Amount is a nullable money value that marshals as a bare JSON number.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

func NewAmount(s string) Amount {
	return Amount{Value: decimal.RequireFromString(s), Valid: true}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*a = Amount{}
		return nil
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	n, err := normalizeAmount(v)
	if err != nil {
		return err
	}
	*a = n
	return nil
}

func (a Amount) String() string {
	if !a.Valid {
		return "null"
	}
	return a.Value.String()
}

// currencyNoise is stripped from textual amounts before parsing.
var currencyNoise = strings.NewReplacer("₹", "", "$", "", "€", "", "£", "", " ", "", "\u00a0", "")

// normalizeAmount turns a model-supplied value into an Amount. Numbers pass
// through, strings lose grouping commas and currency symbols, null stays
// null. Anything else is an error.
func normalizeAmount(v interface{}) (Amount, error) {
	switch val := v.(type) {
	case nil:
		return Amount{}, nil
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return Amount{}, fmt.Errorf("%w: %q", txnlog.ErrAmountConversion, val)
		}
		return Amount{Value: d, Valid: true}, nil
	case float64:
		return Amount{Value: decimal.NewFromFloat(val), Valid: true}, nil
	case int:
		return Amount{Value: decimal.NewFromInt(int64(val)), Valid: true}, nil
	case string:
		d, err := txnlog.ParseAmount(currencyNoise.Replace(txnlog.StripGrouping(val)))
		if err != nil {
			return Amount{}, err
		}
		return Amount{Value: d, Valid: true}, nil
	default:
		return Amount{}, fmt.Errorf("%w: unexpected %T", txnlog.ErrAmountConversion, v)
	}
}
