package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

// ImageOptions tune local OCR. The notices this tool handles are almost
// always Japanese with ASCII codes mixed in, hence the jpn+eng default.
type ImageOptions struct {
	Languages     []string
	PageSegMode   gosseract.PageSegMode
	MinConfidence float64
}

func DefaultImageOptions() ImageOptions {
	return ImageOptions{
		Languages:     []string{"jpn", "eng"},
		PageSegMode:   gosseract.PSM_AUTO,
		MinConfidence: 60.0,
	}
}

// ImageExtractor runs Tesseract on single-page scans after a cleanup
// pipeline. A fresh client is created per call; gosseract clients are not
// safe for concurrent reuse.
type ImageExtractor struct {
	log           logger.Logger
	opts          ImageOptions
	preprocessors []Preprocessor
}

func NewImageExtractor(log logger.Logger, opts ImageOptions) *ImageExtractor {
	if len(opts.Languages) == 0 {
		opts = DefaultImageOptions()
	}
	return &ImageExtractor{
		log:           log,
		opts:          opts,
		preprocessors: defaultPreprocessors(),
	}
}

func (e *ImageExtractor) CanProcess(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/jpg", "image/png", "image/tiff":
		return true
	}
	return false
}

func (e *ImageExtractor) PageCount(ctx context.Context, path string) (int, error) {
	return 1, nil
}

func (e *ImageExtractor) ExtractPage(ctx context.Context, path string, pageIndex int) (string, error) {
	if pageIndex != 0 {
		return "", pageRangeError(path, pageIndex, 1)
	}
	texts, err := e.ExtractDocument(ctx, path)
	if err != nil {
		return "", err
	}
	return texts[0], nil
}

func (e *ImageExtractor) ExtractDocument(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	processed, err := e.applyPreprocessing(img)
	if err != nil {
		return nil, err
	}

	text, confidence, err := e.recognize(processed)
	if err != nil {
		return nil, err
	}
	if e.log != nil {
		e.log.Debug("image ocr done",
			logger.String("path", path),
			logger.Float64("confidence", confidence),
			logger.Int("chars", len(text)),
		)
	}
	return []string{text}, nil
}

func (e *ImageExtractor) Close() error {
	return nil
}

func (e *ImageExtractor) applyPreprocessing(img image.Image) (image.Image, error) {
	result := img
	var err error
	for _, p := range e.preprocessors {
		result, err = p.Process(result)
		if err != nil {
			return nil, fmt.Errorf("preprocess: %w", err)
		}
		if result == nil {
			return nil, fmt.Errorf("preprocessor returned nil image")
		}
	}
	return result, nil
}

func (e *ImageExtractor) recognize(img image.Image) (string, float64, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Join(e.opts.Languages, "+")); err != nil {
		return "", 0, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(e.opts.PageSegMode); err != nil {
		return "", 0, fmt.Errorf("set page seg mode: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, imaging.Clone(img), &jpeg.Options{Quality: 100}); err != nil {
		return "", 0, fmt.Errorf("encode image: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", 0, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("ocr: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return strings.TrimSpace(text), 0, nil
	}
	var total float64
	var kept int
	for _, box := range boxes {
		if box.Confidence >= e.opts.MinConfidence {
			total += box.Confidence
			kept++
		}
	}
	confidence := 0.0
	if kept > 0 {
		confidence = total / float64(kept)
	}
	return strings.TrimSpace(text), confidence, nil
}
