package statement

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
)

// FormatAmount renders an amount in the currency's display form, e.g.
// "₹15,000.00". Unknown currency codes fall back to "15000.00 XYZ".
func FormatAmount(a Amount, currency string) string {
	if !a.Valid {
		return "n/a"
	}
	code := strings.ToUpper(currency)
	cur := money.GetCurrency(code)
	if cur == nil {
		return a.Value.StringFixed(2) + " " + code
	}
	minor := a.Value.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// SummaryLine is the one-line console digest of a result.
func (r *Result) SummaryLine(currency string) string {
	info := r.Fields.AccountInfo
	var who []string
	for _, s := range []string{info.BankName, info.MaskedAccountNumber, info.StatementMonth} {
		if s != "" {
			who = append(who, s)
		}
	}
	if info.StatementYear != 0 {
		who = append(who, fmt.Sprint(info.StatementYear))
	}
	if len(who) == 0 {
		who = append(who, "Statement")
	}

	return fmt.Sprintf("%s: opening %s, closing %s, %d transactions, %d warnings",
		strings.Join(who, " "),
		FormatAmount(r.Fields.Summary.OpeningBalance, currency),
		FormatAmount(r.Fields.Summary.ClosingBalance, currency),
		len(r.Fields.Transactions),
		len(r.Quality.Warnings),
	)
}
