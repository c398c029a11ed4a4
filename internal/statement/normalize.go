package statement

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const maskPrefix = "****"

// MaskAccountNumber keeps only the last four digits: "1234 5678 9012" →
// "****9012". Inputs with fewer than four digits become "****".
func MaskAccountNumber(s string) string {
	var digits []rune
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return maskPrefix
	}
	return maskPrefix + string(digits[len(digits)-4:])
}

// ValidateBalances flags the summary when the closing balance is further
// than tolerance from opening + credits - debits. Missing totals count as
// zero; without both balances nothing is checked.
func ValidateBalances(s *Summary, tolerance decimal.Decimal) bool {
	if !s.OpeningBalance.Valid || !s.ClosingBalance.Valid {
		return false
	}
	expected := s.OpeningBalance.Value.
		Add(valueOrZero(s.TotalCredits)).
		Sub(valueOrZero(s.TotalDebits))

	if s.ClosingBalance.Value.Sub(expected).Abs().GreaterThan(tolerance) {
		s.BalanceMismatchWarning = true
		return true
	}
	return false
}

func valueOrZero(a Amount) decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

// DetectDuplicates reports how many transactions repeat an earlier one with
// the same date, description and amount.
func DetectDuplicates(txs []Transaction) int {
	seen := make(map[string]struct{}, len(txs))
	dups := 0
	for _, tx := range txs {
		key := strings.Join([]string{
			tx.Date,
			strings.ToLower(strings.TrimSpace(tx.Description)),
			tx.Amount.String(),
		}, "\x00")
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}
