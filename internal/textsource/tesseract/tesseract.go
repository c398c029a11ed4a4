// Package tesseract implements textsource.OCR with the Tesseract engine.
// It needs libtesseract at build time, so it lives apart from textsource.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/ledgerscan/statement-tools/internal/textsource"
)

type Engine struct {
	Language  string
	MinHeight int
}

func New(language string, minHeight int) *Engine {
	if language == "" {
		language = "eng"
	}
	return &Engine{Language: language, MinHeight: minHeight}
}

func (e *Engine) Recognize(ctx context.Context, img []byte) (textsource.OCRResult, error) {
	prepared, err := textsource.Preprocess(img, e.MinHeight)
	if err != nil {
		return textsource.OCRResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return textsource.OCRResult{}, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.Language); err != nil {
		return textsource.OCRResult{}, fmt.Errorf("tesseract: set language %q: %w", e.Language, err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return textsource.OCRResult{}, fmt.Errorf("tesseract: set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return textsource.OCRResult{}, fmt.Errorf("tesseract: recognize: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return textsource.OCRResult{}, fmt.Errorf("tesseract: word boxes: %w", err)
	}

	return textsource.OCRResult{Text: text, Confidence: meanConfidence(boxes)}, nil
}

// meanConfidence averages word confidences (0-100) into [0, 1].
func meanConfidence(boxes []gosseract.BoundingBox) float64 {
	if len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100
}

var _ textsource.OCR = (*Engine)(nil)
