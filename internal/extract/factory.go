package extract

import (
	"context"
	"fmt"

	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

// FactoryOptions select which extractor backs each MIME type.
type FactoryOptions struct {
	UseTextract bool
	Textract    TextractConfig
	Image       ImageOptions
}

// Factory routes files to the right extractor by MIME type.
type Factory struct {
	log  logger.Logger
	opts FactoryOptions
}

func NewFactory(log logger.Logger, opts FactoryOptions) *Factory {
	return &Factory{log: log, opts: opts}
}

// ForFile returns an extractor for the given path. The caller owns Close.
func (f *Factory) ForFile(ctx context.Context, path string) (Extractor, error) {
	mimeType := MimeTypeFor(path)
	switch mimeType {
	case "application/pdf":
		return NewPDFExtractor(f.log), nil
	case "image/jpeg", "image/png", "image/tiff":
		if f.opts.UseTextract {
			return NewTextractExtractor(ctx, f.opts.Textract, f.log)
		}
		return NewImageExtractor(f.log, f.opts.Image), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
}
