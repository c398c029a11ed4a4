package statement

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerscan/statement-tools/internal/txnlog"
)

func TestMaskAccountNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"50100123451234", "****1234"},
		{"5010 0123 4512 3456", "****3456"},
		{"XXXXXX7890", "****7890"},
		{"****1234", "****1234"},
		{"123", "****"},
		{"", "****"},
		{"ACCT-12-34", "****1234"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskAccountNumber(tt.input))
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string // "" means null
	}{
		{"nil", nil, ""},
		{"json number", json.Number("15000.50"), "15000.5"},
		{"float", 9000.0, "9000"},
		{"int", 42, "42"},
		{"grouped string", "1,23,456.78", "123456.78"},
		{"rupee", "₹15,000", "15000"},
		{"dollar", "$ 1,250.50", "1250.5"},
		{"euro", "€99", "99"},
		{"pound", "£12.00", "12"},
		{"negative", "-2,000", "-2000"},
		{"nbsp", "17 350", "17350"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeAmount(tt.input)
			require.NoError(t, err)
			if tt.want == "" {
				assert.False(t, got.Valid)
				return
			}
			require.True(t, got.Valid)
			assert.True(t, got.Value.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got.Value, tt.want)
		})
	}
}

func TestNormalizeAmount_Rejects(t *testing.T) {
	for _, bad := range []interface{}{"abc", "", "₹", true, []interface{}{1}} {
		_, err := normalizeAmount(bad)
		assert.True(t, errors.Is(err, txnlog.ErrAmountConversion), "input %#v: %v", bad, err)
	}
}

func TestAmount_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}{A: NewAmount("15000.50"), B: Amount{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":15000.5,"b":null}`, string(b))

	var got struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"₹1,200","b":null,"c":3.25}`), &got))
	assert.True(t, got.A.Value.Equal(decimal.NewFromInt(1200)))
	assert.False(t, got.B.Valid)
	assert.Equal(t, "3.25", got.C.String())
}

func TestValidateBalances(t *testing.T) {
	tol := decimal.NewFromInt(5)

	t.Run("consistent", func(t *testing.T) {
		s := &Summary{
			OpeningBalance: NewAmount("15000"),
			ClosingBalance: NewAmount("17350"),
			TotalCredits:   NewAmount("9000"),
			TotalDebits:    NewAmount("6650"),
		}
		assert.False(t, ValidateBalances(s, tol))
		assert.False(t, s.BalanceMismatchWarning)
	})

	t.Run("within tolerance", func(t *testing.T) {
		s := &Summary{
			OpeningBalance: NewAmount("100"),
			ClosingBalance: NewAmount("105"),
		}
		assert.False(t, ValidateBalances(s, tol))
	})

	t.Run("mismatch", func(t *testing.T) {
		s := &Summary{
			OpeningBalance: NewAmount("15000"),
			ClosingBalance: NewAmount("20000"),
			TotalCredits:   NewAmount("9000"),
			TotalDebits:    NewAmount("6650"),
		}
		assert.True(t, ValidateBalances(s, tol))
		assert.True(t, s.BalanceMismatchWarning)
	})

	t.Run("missing totals count as zero", func(t *testing.T) {
		s := &Summary{
			OpeningBalance: NewAmount("100"),
			ClosingBalance: NewAmount("50"),
		}
		assert.True(t, ValidateBalances(s, tol))
	})

	t.Run("missing balance skips check", func(t *testing.T) {
		s := &Summary{ClosingBalance: NewAmount("50")}
		assert.False(t, ValidateBalances(s, tol))
	})
}

func TestDetectDuplicates(t *testing.T) {
	txs := []Transaction{
		{Date: "2025-10-01", Description: "Swiggy", Amount: NewAmount("-350")},
		{Date: "2025-10-01", Description: "swiggy ", Amount: NewAmount("-350.00")},
		{Date: "2025-10-02", Description: "Swiggy", Amount: NewAmount("-350")},
		{Date: "2025-10-01", Description: "Swiggy", Amount: NewAmount("-351")},
		{Date: "2025-10-01", Description: "Swiggy", Amount: NewAmount("-350")},
	}
	assert.Equal(t, 2, DetectDuplicates(txs))
	assert.Equal(t, 0, DetectDuplicates(nil))
}
