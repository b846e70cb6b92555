package extract

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

const defaultPDFWorkers = 4

// PDFExtractor reads embedded text from PDF pages. Scanned PDFs with no
// text layer come back empty per page; the caller decides whether that
// means blank or needs OCR.
type PDFExtractor struct {
	log        logger.Logger
	maxWorkers int
}

func NewPDFExtractor(log logger.Logger) *PDFExtractor {
	return &PDFExtractor{log: log, maxWorkers: defaultPDFWorkers}
}

func (e *PDFExtractor) CanProcess(mimeType string) bool {
	return mimeType == "application/pdf"
}

func (e *PDFExtractor) PageCount(ctx context.Context, path string) (int, error) {
	reader, _, err := e.open(path)
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

func (e *PDFExtractor) ExtractPage(ctx context.Context, path string, pageIndex int) (string, error) {
	reader, _, err := e.open(path)
	if err != nil {
		return "", err
	}
	if pageIndex < 0 || pageIndex >= reader.NumPage() {
		return "", pageRangeError(path, pageIndex, reader.NumPage())
	}
	return e.pageText(reader, pageIndex)
}

// ExtractDocument reads all pages concurrently, bounded by a semaphore.
// Page order is preserved by writing into the slot for each index.
func (e *PDFExtractor) ExtractDocument(ctx context.Context, path string) ([]string, error) {
	reader, hash, err := e.open(path)
	if err != nil {
		return nil, err
	}
	numPages := reader.NumPage()
	texts := make([]string, numPages)

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.maxWorkers)
	for i := 0; i < numPages; i++ {
		pageIndex := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}
			text, err := e.pageText(reader, pageIndex)
			if err != nil {
				return err
			}
			texts[pageIndex] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if e.log != nil {
		e.log.Debug("pdf extracted",
			logger.String("path", path),
			logger.String("hash", hash[:8]),
			logger.Int("pages", numPages),
		)
	}
	return texts, nil
}

func (e *PDFExtractor) Close() error {
	return nil
}

func (e *PDFExtractor) open(path string) (*pdf.Reader, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	sum := sha256.Sum256(content)
	return pdfReader, hex.EncodeToString(sum[:]), nil
}

func (e *PDFExtractor) pageText(reader *pdf.Reader, pageIndex int) (string, error) {
	page := reader.Page(pageIndex + 1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d: %w", pageIndex, err)
	}
	return strings.TrimSpace(text), nil
}
