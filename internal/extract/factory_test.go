package extract

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

func TestMimeTypeFor(t *testing.T) {
	cases := map[string]string{
		"notice.pdf":  "application/pdf",
		"NOTICE.PDF":  "application/pdf",
		"scan.png":    "image/png",
		"scan.jpg":    "image/jpeg",
		"scan.jpeg":   "image/jpeg",
		"scan.tiff":   "image/tiff",
		"ledger.xlsx": "",
		"noext":       "",
	}
	for path, want := range cases {
		assert.Equal(t, want, MimeTypeFor(path), "path %q", path)
	}
}

func TestFactoryRoutesByExtension(t *testing.T) {
	f := NewFactory(logger.NewTestLogger(), FactoryOptions{})

	ex, err := f.ForFile(context.Background(), "notice.pdf")
	require.NoError(t, err)
	assert.IsType(t, &PDFExtractor{}, ex)

	ex, err = f.ForFile(context.Background(), "scan.png")
	require.NoError(t, err)
	assert.IsType(t, &ImageExtractor{}, ex)

	_, err = f.ForFile(context.Background(), "data.csv")
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestPreprocessPipelineKeepsDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 96))

	result := image.Image(img)
	var err error
	for _, p := range defaultPreprocessors() {
		result, err = p.Process(result)
		require.NoError(t, err)
		require.NotNil(t, result)
	}
	assert.Equal(t, 80, result.Bounds().Dx())
	assert.Equal(t, 96, result.Bounds().Dy())
}

func TestPDFExtractorRejectsMissingFile(t *testing.T) {
	e := NewPDFExtractor(logger.NewTestLogger())

	_, err := e.PageCount(context.Background(), "does/not/exist.pdf")
	assert.Error(t, err)
}
