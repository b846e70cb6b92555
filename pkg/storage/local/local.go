// Package local stores renamed documents on the local filesystem. This is
// the default backend: accountants usually want the renamed PDFs straight
// in a folder they can drag into their filing tool.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cfg "github.com/taxkit/tax-document-renamer/config"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

type LocalStorage struct {
	baseDir string
	logger  logger.Logger
}

func NewLocalStorage(baseDir string, log logger.Logger) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, logger: log}, nil
}

func GetClient(log logger.Logger) (*LocalStorage, error) {
	return NewLocalStorage(cfg.GetAppConfig().OutputDir, log)
}

// Store writes the object under key, creating parent directories as
// needed. Writes go through a temp file so a crash never leaves a
// half-written renamed document.
func (l *LocalStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	path, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".store-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finalize file: %w", err)
	}

	if l.logger != nil {
		l.logger.Debug("stored file", logger.String("key", key))
	}
	return key, nil
}

func (l *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// CleanupBefore removes files last modified before threshold. Empty
// directories are left in place.
func (l *LocalStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	return filepath.Walk(l.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !info.ModTime().Before(threshold) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			if l.logger != nil {
				l.logger.Error("failed to remove expired file",
					logger.String("path", path), logger.Error(err))
			}
			return nil
		}
		if l.logger != nil {
			l.logger.Info("removed expired file",
				logger.String("path", path), logger.Time("modified", info.ModTime()))
		}
		return nil
	})
}

// resolve joins key onto the base directory and refuses keys that would
// escape it.
func (l *LocalStorage) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(l.baseDir, key))
	base := filepath.Clean(l.baseDir)
	rel, err := filepath.Rel(base, cleaned)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes base directory", key)
	}
	return cleaned, nil
}
