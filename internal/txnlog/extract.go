// Package txnlog extracts transaction records from free-form log text.
//
// A record is written on one line as
//
//	TXN:<TYPE> | AMT:<AMOUNT> | ID:<IDENT>
//
// where TYPE is uppercase letters, AMOUNT is digits with optional comma grouping
// and an optional fractional part, and IDENT is alphanumeric. Tags are matched
// case-sensitively and anything that does not fit the grammar is skipped.
package txnlog

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// ErrNotText is returned when the input payload is not text.
var ErrNotText = errors.New("input is not text")

// Grammar fragments. ws is horizontal only so a match never crosses a line break.
const (
	ws      = `[ \t]*`
	sep     = ws + `\|` + ws
	typeTok = `([A-Z]+)`
	amtTok  = `([0-9][0-9,]*(?:\.[0-9]+)?)`
	idTok   = `([A-Za-z0-9]+)`
)

func tag(name string) string {
	return name + ws + `:` + ws
}

// recordRe is compiled once and is safe for concurrent use.
var recordRe = regexp.MustCompile(
	tag("TXN") + typeTok + sep +
		tag("AMT") + amtTok + sep +
		tag("ID") + idTok,
)

// Extractor scans text for records. The zero value is ready to use and
// discards diagnostics.
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor returns an Extractor that reports skipped matches at debug level.
func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{log: log}
}

var defaultExtractor = &Extractor{log: zerolog.Nop()}

// Extract returns every record found in text, in encounter order.
func Extract(text string) []Record {
	return defaultExtractor.Extract(text)
}

// ExtractBytes is Extract for raw input. It fails with ErrNotText for binary payloads.
func ExtractBytes(data []byte) ([]Record, error) {
	return defaultExtractor.ExtractBytes(data)
}

// ExtractReader reads r to the end and extracts records from it.
func ExtractReader(r io.Reader) ([]Record, error) {
	return defaultExtractor.ExtractReader(r)
}

// Extract returns every record found in text, scanning top-to-bottom and
// left-to-right. Malformed lines yield nothing.
func (e *Extractor) Extract(text string) []Record {
	matches := recordRe.FindAllStringSubmatch(text, -1)
	records := make([]Record, 0, len(matches))

	for _, m := range matches {
		amount, err := NormalizeAmount(m[2])
		if err != nil {
			e.log.Debug().Err(err).Str("match", m[0]).Msg("skipping record with unparseable amount")
			continue
		}
		records = append(records, Record{
			Type:   m[1],
			Amount: amount,
			ID:     m[3],
		})
	}

	return records
}

// ExtractBytes checks that data is text and then extracts records from it.
func (e *Extractor) ExtractBytes(data []byte) ([]Record, error) {
	if !isText(data) {
		return nil, notText(data)
	}
	return e.Extract(string(data)), nil
}

// ExtractReader reads r to the end and extracts records from it.
func (e *Extractor) ExtractReader(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return e.ExtractBytes(data)
}

// isText reports whether data is text by content: it must not contain NUL or
// the C0 control bytes that never occur in text files. Tab, line breaks, form
// feed, vertical tab and ESC (ANSI colour codes in logs) are allowed. Invalid
// UTF-8 alone does not make data binary, so single-byte encodings pass.
func isText(data []byte) bool {
	for _, b := range data {
		if b < 0x20 && !textControl[b] {
			return false
		}
	}
	return true
}

var textControl = [0x20]bool{'\t': true, '\n': true, '\v': true, '\f': true, '\r': true, 0x1b: true}

// notText labels ErrNotText with the sniffed MIME type.
func notText(data []byte) error {
	return fmt.Errorf("%w: detected %s", ErrNotText, mimetype.Detect(data).String())
}
