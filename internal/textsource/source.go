package textsource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerscan/statement-tools/internal/logger"
)

// ErrUnsupportedDocument is returned for payloads that are neither PDF,
// image nor text.
var ErrUnsupportedDocument = errors.New("unsupported document type")

// Method records how the statement text was obtained.
type Method string

const (
	MethodPlain   Method = "plain"
	MethodPDFText Method = "pdf_text"
	MethodOCR     Method = "ocr"
	// MethodInline means no usable text was found and the original bytes
	// must be handed to the model.
	MethodInline Method = "inline"
)

// Document is a loaded statement file.
type Document struct {
	Name string
	Data []byte
}

type Text struct {
	Content string
	Method  Method
	Kind    Kind
	// MIMEType is set for inline documents.
	MIMEType string
	// Confidence is the OCR mean word confidence; nil when OCR was not used.
	Confidence *float64
}

// Source picks the extraction path for a document. A nil OCR disables
// recognition and images go to the model inline.
type Source struct {
	pdf TextExtractor
	ocr OCR
}

func NewSource(pdf TextExtractor, ocr OCR) *Source {
	if pdf == nil {
		pdf = PDFExtractor{}
	}
	return &Source{pdf: pdf, ocr: ocr}
}

func (s *Source) Read(ctx context.Context, doc Document) (Text, error) {
	log := logger.FromContext(ctx)
	kind := Detect(doc.Data, doc.Name)

	switch kind {
	case KindText:
		return Text{Content: string(doc.Data), Method: MethodPlain, Kind: kind}, nil

	case KindPDF:
		content, err := s.pdf.ExtractText(ctx, doc.Data)
		if err != nil {
			log.Warn().Err(err).Str("document", doc.Name).Msg("PDF text layer unreadable, sending document inline")
			return inline(doc, kind), nil
		}
		if strings.TrimSpace(content) == "" {
			log.Info().Str("document", doc.Name).Msg("PDF has no text layer, sending document inline")
			return inline(doc, kind), nil
		}
		return Text{Content: content, Method: MethodPDFText, Kind: kind}, nil

	case KindImage:
		if s.ocr == nil {
			return inline(doc, kind), nil
		}
		res, err := s.ocr.Recognize(ctx, doc.Data)
		if err != nil {
			if ctx.Err() != nil {
				return Text{}, ctx.Err()
			}
			log.Warn().Err(err).Str("document", doc.Name).Msg("OCR failed, sending image inline")
			return inline(doc, kind), nil
		}
		if strings.TrimSpace(res.Text) == "" {
			log.Info().Str("document", doc.Name).Msg("OCR found no text, sending image inline")
			return inline(doc, kind), nil
		}
		conf := res.Confidence
		log.Debug().Float64("ocr_confidence", conf).Int("chars", len(res.Text)).Msg("OCR complete")
		return Text{Content: strings.TrimSpace(res.Text), Method: MethodOCR, Kind: kind, Confidence: &conf}, nil
	}

	return Text{}, fmt.Errorf("Source.Read: %s: %w", doc.Name, ErrUnsupportedDocument)
}

func inline(doc Document, kind Kind) Text {
	return Text{Method: MethodInline, Kind: kind, MIMEType: MIMEType(doc.Data)}
}
