// Package validator checks uploads before they enter a run: extension,
// size and sniffed MIME type, with a content hash for audit.
package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

type UploadValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

type ValidatorConfig struct {
	// MaxFileSize in bytes.
	MaxFileSize int64
	// AllowedTypes maps extension to acceptable sniffed MIME types.
	AllowedTypes map[string][]string
}

type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
}

func NewUploadValidator(log logger.Logger, vc *ValidatorConfig) *UploadValidator {
	if vc == nil {
		vc = &ValidatorConfig{
			MaxFileSize: 100 * 1024 * 1024, // 100MB covers year-end ledger PDFs
			AllowedTypes: map[string][]string{
				".pdf":  {"application/pdf"},
				".jpg":  {"image/jpeg"},
				".jpeg": {"image/jpeg"},
				".png":  {"image/png"},
				".tif":  {"image/tiff", "application/octet-stream"},
				".tiff": {"image/tiff", "application/octet-stream"},
			},
		}
	}
	return &UploadValidator{logger: log, config: vc}
}

// ValidateFile checks one upload. A failed check marks the result
// invalid; only I/O faults return an error.
func (v *UploadValidator) ValidateFile(header *multipart.FileHeader) (*ValidationResult, error) {
	result := &ValidationResult{
		IsValid: true,
		FileInfo: FileInfo{
			Filename:  header.Filename,
			Size:      header.Size,
			Extension: strings.ToLower(filepath.Ext(header.Filename)),
		},
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	hash, err := contentHash(f)
	if err != nil {
		return nil, fmt.Errorf("failed to hash file: %w", err)
	}
	result.FileInfo.Hash = hash

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file pointer: %w", err)
	}
	mimeType, err := sniffMimeType(f)
	if err != nil {
		return nil, fmt.Errorf("failed to detect mime type: %w", err)
	}
	result.FileInfo.MimeType = mimeType

	result.Errors = append(result.Errors, v.checkBasics(result.FileInfo)...)
	result.Errors = append(result.Errors, v.checkMimeType(result.FileInfo)...)
	if len(result.Errors) > 0 {
		result.IsValid = false
		v.logger.Warn("upload rejected",
			logger.String("filename", header.Filename),
			logger.String("mime_type", mimeType),
			logger.Int("errors", len(result.Errors)),
		)
	}
	return result, nil
}

func (v *UploadValidator) checkBasics(info FileInfo) []ValidationError {
	var errs []ValidationError
	if info.Size > v.config.MaxFileSize {
		errs = append(errs, ValidationError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("file size exceeds maximum of %d bytes", v.config.MaxFileSize),
			Field:   "size",
		})
	}
	if _, ok := v.config.AllowedTypes[info.Extension]; !ok {
		errs = append(errs, ValidationError{
			Code:    "INVALID_FILE_TYPE",
			Message: fmt.Sprintf("file type %s is not allowed", info.Extension),
			Field:   "extension",
		})
	}
	return errs
}

func (v *UploadValidator) checkMimeType(info FileInfo) []ValidationError {
	allowed, ok := v.config.AllowedTypes[info.Extension]
	if !ok {
		return nil // extension check already reported it
	}
	for _, m := range allowed {
		if m == info.MimeType {
			return nil
		}
	}
	return []ValidationError{{
		Code:    "INVALID_MIME_TYPE",
		Message: fmt.Sprintf("mime type %s does not match extension %s", info.MimeType, info.Extension),
		Field:   "mimeType",
	}}
}

func sniffMimeType(f multipart.File) (string, error) {
	buffer := make([]byte, 512)
	if _, err := f.Read(buffer); err != nil && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buffer), nil
}

func contentHash(f multipart.File) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
