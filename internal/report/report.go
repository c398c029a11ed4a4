// Package report renders extracted transaction records for the console.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ledgerscan/statement-tools/internal/txnlog"
)

// Title is the banner printed at the top of every report.
const Title = "Transaction Value Extractor"

const (
	doneMarker = "Done."
	noRecords  = "No valid transaction entries found."
)

// Write prints the banner, one line per record and the completion marker.
func Write(w io.Writer, records []txnlog.Record) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, Title)
	fmt.Fprintln(bw, strings.Repeat("=", len(Title)))
	fmt.Fprintln(bw)

	if len(records) == 0 {
		fmt.Fprintln(bw, noRecords)
	} else {
		fmt.Fprintln(bw, "Extracted Transactions:")
		for i, r := range records {
			fmt.Fprintln(bw, Line(i+1, r))
		}
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, doneMarker)

	return bw.Flush()
}

// Line formats a single record as "NN. TYPE    |     AMOUNT | ID: ident".
func Line(n int, r txnlog.Record) string {
	return fmt.Sprintf("%02d. %-7s | %10s | ID: %s", n, r.Type, r.Amount.StringFixed(2), r.ID)
}
