// Package textsource turns statement documents (PDFs, scanned images, plain
// text) into text that can be sent to a model, or decides that the raw bytes
// must be sent instead.
package textsource

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the coarse document family used to choose an extraction path.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
	KindText    Kind = "text"
	KindUnknown Kind = "unknown"
)

var extKinds = map[string]Kind{
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".bmp":  KindImage,
	".tiff": KindImage,
	".tif":  KindImage,
	".txt":  KindText,
}

// Detect sniffs data and falls back to the file extension of name when the
// content alone is inconclusive.
func Detect(data []byte, name string) Kind {
	if len(data) > 0 {
		if k := kindOfMIME(mimetype.Detect(data)); k != KindUnknown {
			return k
		}
	}
	if k, ok := extKinds[strings.ToLower(filepath.Ext(name))]; ok {
		return k
	}
	return KindUnknown
}

// MIMEType returns the sniffed MIME type without parameters, e.g. "application/pdf".
func MIMEType(data []byte) string {
	m := mimetype.Detect(data).String()
	if i := strings.IndexByte(m, ';'); i != -1 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}

func kindOfMIME(m *mimetype.MIME) Kind {
	switch {
	case m.Is("application/pdf"):
		return KindPDF
	case strings.HasPrefix(m.String(), "image/"):
		return KindImage
	}
	for p := m; p != nil; p = p.Parent() {
		if p.Is("text/plain") {
			return KindText
		}
	}
	return KindUnknown
}
