// Package extract turns source files into per-page text. PDF pages are
// read natively; images go through OCR, locally via Tesseract or remotely
// via Textract.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFile is returned for files no extractor can handle.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Extractor reads text out of one source file. Page indices are 0-based.
type Extractor interface {
	PageCount(ctx context.Context, path string) (int, error)
	ExtractPage(ctx context.Context, path string, pageIndex int) (string, error)
	ExtractDocument(ctx context.Context, path string) ([]string, error)
	Close() error
}

// MimeTypeFor maps a filename to the MIME type used for extractor routing.
func MimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	}
	return ""
}

func pageRangeError(path string, pageIndex, pages int) error {
	return fmt.Errorf("page %d out of range for %s (%d pages)", pageIndex, path, pages)
}
