package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/taxkit/tax-document-renamer/pkg/logger"
	"github.com/taxkit/tax-document-renamer/pkg/storage/local"
	"github.com/taxkit/tax-document-renamer/pkg/storage/minio"
	"github.com/taxkit/tax-document-renamer/pkg/storage/s3"
)

type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage holds renamed documents and run exports. Local disk is the
// default; MinIO and S3 back shared deployments.
type Storage interface {
	// Store writes the object under key and returns the stored key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get opens the object for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes objects last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage builds a backend by type name.
func NewStorage(storageType StorageType, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeLocal:
		return local.GetClient(log)
	case StorageTypeS3:
		return s3.GetClient(log)
	case StorageTypeMinio:
		return minio.GetClient(log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
