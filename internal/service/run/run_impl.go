package run

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	cfg "github.com/taxkit/tax-document-renamer/config"
	"github.com/taxkit/tax-document-renamer/internal/bundle"
	"github.com/taxkit/tax-document-renamer/internal/catalog"
	"github.com/taxkit/tax-document-renamer/internal/classify"
	"github.com/taxkit/tax-document-renamer/internal/export"
	"github.com/taxkit/tax-document-renamer/internal/extract"
	"github.com/taxkit/tax-document-renamer/internal/history"
	"github.com/taxkit/tax-document-renamer/internal/jobctx"
	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/pipeline"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
	"github.com/taxkit/tax-document-renamer/pkg/queue"
	"github.com/taxkit/tax-document-renamer/pkg/storage"
)

// ServiceConfig tunes the run service.
type ServiceConfig struct {
	DefaultPeriod string
	ExportDir     string
	MaxFiles      int
	QueuePriority int
}

// RunService implements Processor on top of the pipeline, the queue and
// the history store.
type RunService struct {
	pipeline *pipeline.Pipeline
	queue    queue.Queue
	history  *history.Store
	logger   logger.Logger
	config   *ServiceConfig
}

func NewService(p *pipeline.Pipeline, q queue.Queue, h *history.Store, log logger.Logger, sc *ServiceConfig) Processor {
	if sc == nil {
		sc = &ServiceConfig{
			ExportDir:     "output/exports",
			MaxFiles:      100,
			QueuePriority: 2,
		}
	}
	return &RunService{
		pipeline: p,
		queue:    q,
		history:  h,
		logger:   log,
		config:   sc,
	}
}

// GetService wires the full production stack from the environment.
func GetService(log logger.Logger) (Processor, error) {
	app := cfg.GetAppConfig()

	cat := catalog.Default()
	if app.CatalogPath != "" {
		loaded, err := catalog.Load(app.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule catalog: %w", err)
		}
		cat = loaded
	}

	detCfg := bundle.DefaultConfig()
	if app.BundleScanPages > 0 {
		detCfg.ScanPages = app.BundleScanPages
	}

	tc := cfg.GetTextractConfig()
	factory := extract.NewFactory(log, extract.FactoryOptions{
		UseTextract: app.UseTextract,
		Textract: extract.TextractConfig{
			Region:        tc.Region,
			AccessKey:     tc.AccessKey,
			SecretKey:     tc.SecretKey,
			MinConfidence: float32(tc.MinConfidence),
		},
		Image: extract.DefaultImageOptions(),
	})

	store, err := storage.NewStorage(storage.StorageType(app.StorageBackend), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	h, err := history.Open(app.HistoryDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	p := pipeline.New(
		classify.New(cat, log),
		bundle.NewDetector(detCfg, log),
		factory,
		storage.NewObjectSink(store),
		log,
		app.WorkerConcurrency,
	)

	sc := &ServiceConfig{
		DefaultPeriod: app.DefaultPeriod,
		ExportDir:     filepath.Join(app.OutputDir, "exports"),
		MaxFiles:      100,
		QueuePriority: 2,
	}
	return NewService(p, q, h, log, sc), nil
}

// Submit validates the request, records a pending run and enqueues it.
func (s *RunService) Submit(ctx context.Context, req SubmitRequest) (models.Run, error) {
	if len(req.Files) == 0 {
		return models.Run{}, fmt.Errorf("no input files")
	}
	if len(req.Files) > s.config.MaxFiles {
		return models.Run{}, fmt.Errorf("too many files: %d > %d", len(req.Files), s.config.MaxFiles)
	}

	runID := uuid.New().String()
	// Probe the context construction so bad periods and slot lists are
	// rejected at submit time, not inside the worker.
	if _, err := jobctx.New(runID, req.Period, req.Slots); err != nil {
		return models.Run{}, err
	}

	run := models.Run{
		ID:        runID,
		Files:     req.Files,
		Period:    req.Period,
		Slots:     req.Slots,
		Status:    models.RunStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.history.SaveRun(ctx, run); err != nil {
		return models.Run{}, fmt.Errorf("failed to record run: %w", err)
	}

	if err := s.enqueue(ctx, TaskPayload{RunID: runID, ForceSplit: req.ForceSplit}); err != nil {
		return models.Run{}, err
	}

	s.logger.Info("run submitted",
		logger.String("run_id", runID),
		logger.Int("files", len(req.Files)),
		logger.String("period", req.Period),
	)
	return run, nil
}

func (s *RunService) enqueue(ctx context.Context, payload TaskPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	task := &queue.Task{
		ID:        payload.RunID,
		Type:      queue.TaskTypeRunProcess,
		Priority:  s.config.QueuePriority,
		Payload:   raw,
		CreatedAt: time.Now(),
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue run: %w", err)
	}
	return nil
}

// Execute processes one run to completion. Pipeline failures land in the
// run record; the returned error covers only infrastructure faults, so
// the queue does not retry runs that fail deterministically.
func (s *RunService) Execute(ctx context.Context, payload TaskPayload) (models.Run, error) {
	run, err := s.history.GetRun(ctx, payload.RunID)
	if err != nil {
		return models.Run{}, err
	}

	run.Status = models.RunStatusProcessing
	run.Error = ""
	if err := s.history.SaveRun(ctx, run); err != nil {
		return models.Run{}, err
	}

	jc, err := jobctx.New(run.ID, run.Period, run.Slots,
		jobctx.WithDefaultPeriod(s.config.DefaultPeriod),
		jobctx.WithLogger(s.logger),
	)
	if err != nil {
		return s.finishRun(ctx, run, err)
	}
	if payload.ForcedPeriod != "" {
		if err := jc.ForcePeriod(payload.ForcedPeriod); err != nil {
			return s.finishRun(ctx, run, err)
		}
	}

	records, procErr := s.pipeline.ProcessRun(ctx, jc, run.Files, pipeline.RunOptions{
		ForceSplit: payload.ForceSplit,
	})
	if len(records) > 0 {
		if err := s.history.SaveDecisions(ctx, records); err != nil {
			return models.Run{}, err
		}
	}

	stats := jc.StatsSnapshot()
	s.logger.Info("run finished",
		logger.String("run_id", run.ID),
		logger.Int("units", stats.TotalUnits),
		logger.Int("renamed", stats.Renamed),
		logger.Int("skipped", stats.Skipped),
		logger.Int("failed", stats.Failed),
	)
	return s.finishRun(ctx, run, procErr)
}

func (s *RunService) finishRun(ctx context.Context, run models.Run, procErr error) (models.Run, error) {
	run.CompletedAt = time.Now()
	if procErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = procErr.Error()
	} else {
		run.Status = models.RunStatusCompleted
	}
	if err := s.history.SaveRun(ctx, run); err != nil {
		return models.Run{}, err
	}
	return run, nil
}

func (s *RunService) GetRun(ctx context.Context, id string) (models.Run, error) {
	return s.history.GetRun(ctx, id)
}

func (s *RunService) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	return s.history.ListRuns(ctx, limit)
}

func (s *RunService) ListDecisions(ctx context.Context, runID string) ([]models.DecisionRecord, error) {
	return s.history.ListDecisions(ctx, runID)
}

// ForcePeriod re-queues a run with an explicit period override.
func (s *RunService) ForcePeriod(ctx context.Context, runID, period string) (models.Run, error) {
	normalized, ok := jobctx.NormalizePeriod(period)
	if !ok {
		return models.Run{}, fmt.Errorf("%w: %q", jobctx.ErrInvalidPeriod, period)
	}

	run, err := s.history.GetRun(ctx, runID)
	if err != nil {
		return models.Run{}, err
	}
	run.Status = models.RunStatusPending
	run.Error = ""
	run.CompletedAt = time.Time{}
	if err := s.history.SaveRun(ctx, run); err != nil {
		return models.Run{}, err
	}

	if err := s.enqueue(ctx, TaskPayload{RunID: runID, ForcedPeriod: normalized}); err != nil {
		return models.Run{}, err
	}
	s.logger.Info("run re-queued with forced period",
		logger.String("run_id", runID),
		logger.String("period", normalized),
	)
	return run, nil
}

// TaskStatus reads the queue-side status of the run's task. It answers
// from the redis mirror the worker maintains, so it reflects progress
// even after asynq has pruned the task.
func (s *RunService) TaskStatus(ctx context.Context, runID string) (*queue.TaskStatus, error) {
	return s.queue.GetTaskStatus(ctx, runID)
}

// Cancel withdraws a pending run from the queue. Runs that already
// started keep going; their result stays reviewable in history.
func (s *RunService) Cancel(ctx context.Context, runID string) (models.Run, error) {
	run, err := s.history.GetRun(ctx, runID)
	if err != nil {
		return models.Run{}, err
	}
	if run.Status != models.RunStatusPending {
		return models.Run{}, fmt.Errorf("run %s is %s; only pending runs can be cancelled", runID, run.Status)
	}

	if err := s.queue.CancelTask(ctx, runID); err != nil {
		return models.Run{}, fmt.Errorf("failed to cancel run task: %w", err)
	}

	run.Status = models.RunStatusFailed
	run.Error = "cancelled before processing"
	run.CompletedAt = time.Now()
	if err := s.history.SaveRun(ctx, run); err != nil {
		return models.Run{}, err
	}
	s.logger.Info("run cancelled", logger.String("run_id", runID))
	return run, nil
}

// Export writes the run's decisions as CSV or XLSX and returns the path.
func (s *RunService) Export(ctx context.Context, runID, format string) (string, error) {
	records, err := s.history.ListDecisions(ctx, runID)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", fmt.Errorf("run %s has no decisions", runID)
	}

	if err := os.MkdirAll(s.config.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(s.config.ExportDir, fmt.Sprintf("%s.%s", runID, format))
	switch format {
	case "csv":
		err = export.WriteCSV(path, records)
	case "xlsx":
		err = export.WriteXLSX(path, records)
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
