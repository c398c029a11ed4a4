package textsource

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
)

// OCRResult is the recognized text and the mean word confidence in [0, 1].
type OCRResult struct {
	Text       string
	Confidence float64
}

// OCR recognizes text in a raster image.
type OCR interface {
	Recognize(ctx context.Context, img []byte) (OCRResult, error)
}

// Preprocess converts an image to grayscale, lifts contrast and upscales it
// when it is shorter than minHeight pixels. The result is PNG encoded.
func Preprocess(img []byte, minHeight int) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(img), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("Preprocess: decode: %w", err)
	}

	gray := imaging.Grayscale(src)
	gray = imaging.AdjustContrast(gray, 15)
	if minHeight > 0 && gray.Bounds().Dy() < minHeight {
		gray = imaging.Resize(gray, 0, minHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("Preprocess: encode: %w", err)
	}
	return buf.Bytes(), nil
}
