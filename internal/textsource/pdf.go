package textsource

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor pulls the embedded text layer out of a document.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// PDFExtractor reads the text layer of every page. Scanned PDFs have none and
// yield an empty string.
type PDFExtractor struct{}

func (PDFExtractor) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDFExtractor.ExtractText: malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("PDFExtractor.ExtractText: open: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("PDFExtractor.ExtractText: page %d: %w", i, err)
		}
		b.WriteString(t)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
