package config

import (
	"sync"
)

var (
	appOnce   sync.Once
	appConfig *AppConfig
)

// AppConfig holds the core rename-engine settings.
type AppConfig struct {
	// OutputDir is where renamed documents land with the local backend.
	OutputDir string
	// UploadDir receives raw uploads before processing.
	UploadDir string
	// CatalogPath optionally points at a YAML rule catalog; empty means
	// the built-in catalog.
	CatalogPath string
	// DefaultPeriod is the YYMM fallback for non-protected codes.
	DefaultPeriod string
	// StorageBackend selects local, minio or s3.
	StorageBackend string
	// WorkerConcurrency caps concurrent classification per run.
	WorkerConcurrency int
	// BundleScanPages bounds the bundle-detection sample window.
	BundleScanPages int
	// HistoryDBPath is the SQLite file for run history.
	HistoryDBPath string
	// UseTextract switches image OCR from local Tesseract to AWS.
	UseTextract bool
}

func GetAppConfig() *AppConfig {
	appOnce.Do(func() {
		loadEnv()

		appConfig = &AppConfig{
			OutputDir:         getEnv("RENAMER_OUTPUT_DIR", "output"),
			UploadDir:         getEnv("RENAMER_UPLOAD_DIR", "uploads"),
			CatalogPath:       getEnv("RENAMER_CATALOG_PATH", ""),
			DefaultPeriod:     getEnv("RENAMER_DEFAULT_PERIOD", ""),
			StorageBackend:    getEnv("RENAMER_STORAGE_BACKEND", "local"),
			WorkerConcurrency: getEnvInt("RENAMER_WORKER_CONCURRENCY", 4),
			BundleScanPages:   getEnvInt("RENAMER_BUNDLE_SCAN_PAGES", 10),
			HistoryDBPath:     getEnv("RENAMER_HISTORY_DB", "data/history.db"),
			UseTextract:       getEnvBool("RENAMER_USE_TEXTRACT", false),
		}
	})
	return appConfig
}
