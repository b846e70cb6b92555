package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

// TextractConfig carries the AWS settings for remote OCR.
type TextractConfig struct {
	Region        string
	AccessKey     string
	SecretKey     string
	MinConfidence float32
}

// TextractExtractor is the remote OCR fallback for scans that local
// Tesseract reads poorly. Each input file is sent as one synchronous
// DetectDocumentText call, so multi-page PDFs must be split upstream.
type TextractExtractor struct {
	client *textract.Client
	log    logger.Logger
	config TextractConfig
}

func NewTextractExtractor(ctx context.Context, cfg TextractConfig, log logger.Logger) (*TextractExtractor, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &TextractExtractor{
		client: textract.NewFromConfig(awsCfg),
		log:    log,
		config: cfg,
	}, nil
}

func (e *TextractExtractor) CanProcess(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg", "image/png", "image/tiff":
		return true
	}
	return false
}

func (e *TextractExtractor) PageCount(ctx context.Context, path string) (int, error) {
	return 1, nil
}

func (e *TextractExtractor) ExtractPage(ctx context.Context, path string, pageIndex int) (string, error) {
	if pageIndex != 0 {
		return "", pageRangeError(path, pageIndex, 1)
	}
	texts, err := e.ExtractDocument(ctx, path)
	if err != nil {
		return "", err
	}
	return texts[0], nil
}

func (e *TextractExtractor) ExtractDocument(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	result, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return nil, fmt.Errorf("textract detect: %w", err)
	}

	lines := e.lineBlocks(result.Blocks)
	if e.log != nil {
		e.log.Debug("textract extracted",
			logger.String("path", path),
			logger.Int("lines", len(lines)),
		)
	}
	return []string{strings.Join(lines, "\n")}, nil
}

func (e *TextractExtractor) Close() error {
	return nil
}

func (e *TextractExtractor) lineBlocks(blocks []types.Block) []string {
	var lines []string
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if block.Confidence != nil && *block.Confidence < e.config.MinConfidence {
			continue
		}
		lines = append(lines, *block.Text)
	}
	return lines
}
