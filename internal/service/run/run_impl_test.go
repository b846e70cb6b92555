package run

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxkit/tax-document-renamer/internal/bundle"
	"github.com/taxkit/tax-document-renamer/internal/catalog"
	"github.com/taxkit/tax-document-renamer/internal/classify"
	"github.com/taxkit/tax-document-renamer/internal/extract"
	"github.com/taxkit/tax-document-renamer/internal/history"
	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/pipeline"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
	"github.com/taxkit/tax-document-renamer/pkg/queue"
)

type fakeQueue struct {
	mu        sync.Mutex
	tasks     []*queue.Task
	statuses  map[string]*queue.TaskStatus
	cancelled []string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{statuses: make(map[string]*queue.TaskStatus)}
}

func (q *fakeQueue) Enqueue(_ context.Context, task *queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) GetTaskStatus(_ context.Context, taskID string) (*queue.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	status, ok := q.statuses[taskID]
	if !ok {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	return status, nil
}

func (q *fakeQueue) CancelTask(_ context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, taskID)
	return nil
}

func (q *fakeQueue) SaveFinalStatus(_ context.Context, status *queue.TaskStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[status.TaskID] = status
	return nil
}

type fakeExtractor struct {
	pages []string
}

func (f *fakeExtractor) PageCount(context.Context, string) (int, error) { return len(f.pages), nil }

func (f *fakeExtractor) ExtractPage(_ context.Context, path string, i int) (string, error) {
	if i < 0 || i >= len(f.pages) {
		return "", fmt.Errorf("page %d out of range for %s", i, path)
	}
	return f.pages[i], nil
}

func (f *fakeExtractor) ExtractDocument(context.Context, string) ([]string, error) {
	return f.pages, nil
}

func (f *fakeExtractor) Close() error { return nil }

type fakeFactory struct {
	docs map[string][]string
}

func (f *fakeFactory) ForFile(_ context.Context, path string) (extract.Extractor, error) {
	pages, ok := f.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedFile, path)
	}
	return &fakeExtractor{pages: pages}, nil
}

type fakeSink struct {
	mu        sync.Mutex
	finalized map[string]string
}

func (s *fakeSink) Finalize(_ context.Context, sourcePath, finalName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized[finalName] = sourcePath
	return nil
}

type serviceFixture struct {
	svc     Processor
	queue   *fakeQueue
	history *history.Store
	sink    *fakeSink
}

func newFixture(t *testing.T, docs map[string][]string) *serviceFixture {
	t.Helper()
	log := logger.NewTestLogger()

	h, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	sink := &fakeSink{finalized: make(map[string]string)}
	p := pipeline.New(
		classify.New(catalog.Default(), log),
		bundle.NewDetector(bundle.DefaultConfig(), log),
		&fakeFactory{docs: docs},
		sink,
		log,
		2,
	)

	q := newFakeQueue()
	svc := NewService(p, q, h, log, &ServiceConfig{
		ExportDir:     filepath.Join(t.TempDir(), "exports"),
		MaxFiles:      10,
		QueuePriority: 2,
	})
	return &serviceFixture{svc: svc, queue: q, history: h, sink: sink}
}

func TestSubmitRecordsAndEnqueues(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	run, err := fx.svc.Submit(ctx, SubmitRequest{
		Files:  []string{"ledger.pdf"},
		Period: "2508",
		Slots:  []models.JurisdictionSlot{{Index: 1, Prefecture: "東京都"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPending, run.Status)

	saved, err := fx.history.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger.pdf"}, saved.Files)

	require.Len(t, fx.queue.tasks, 1)
	task := fx.queue.tasks[0]
	assert.Equal(t, queue.TaskTypeRunProcess, task.Type)

	var payload TaskPayload
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, run.ID, payload.RunID)
}

func TestSubmitRejectsEmptyFiles(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.svc.Submit(context.Background(), SubmitRequest{})
	assert.Error(t, err)
	assert.Empty(t, fx.queue.tasks)
}

func TestSubmitRejectsMalformedPeriod(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.svc.Submit(context.Background(), SubmitRequest{
		Files:  []string{"ledger.pdf"},
		Period: "August 2025",
	})
	assert.Error(t, err)
	assert.Empty(t, fx.queue.tasks)
}

func TestExecuteCompletesRunAndPersistsDecisions(t *testing.T) {
	fx := newFixture(t, map[string][]string{
		"ledger.pdf": {"総勘定元帳 株式会社サンプル 現金 普通預金 売掛金 摘要 残高"},
	})
	ctx := context.Background()

	submitted, err := fx.svc.Submit(ctx, SubmitRequest{Files: []string{"ledger.pdf"}, Period: "2508"})
	require.NoError(t, err)

	finished, err := fx.svc.Execute(ctx, TaskPayload{RunID: submitted.ID})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, finished.Status)
	assert.False(t, finished.CompletedAt.IsZero())

	records, err := fx.svc.ListDecisions(ctx, submitted.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "5002_総勘定元帳_2508.pdf", records[0].FinalName)
	assert.Contains(t, fx.sink.finalized, "5002_総勘定元帳_2508.pdf")
}

func TestExecuteMarksSlotOrderViolationFailed(t *testing.T) {
	fx := newFixture(t, map[string][]string{
		"receipt.pdf": {"愛知県東三河県税事務所 法人事業税 申告受付完了通知"},
	})
	ctx := context.Background()

	submitted, err := fx.svc.Submit(ctx, SubmitRequest{
		Files:  []string{"receipt.pdf"},
		Period: "2508",
		Slots: []models.JurisdictionSlot{
			{Index: 1, Prefecture: "愛知県"},
			{Index: 2, Prefecture: "東京都"},
		},
	})
	require.NoError(t, err)

	// A deterministic pipeline failure lands in the run record, not in the
	// returned error, so the queue does not retry it.
	finished, err := fx.svc.Execute(ctx, TaskPayload{RunID: submitted.ID})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, finished.Status)
	assert.NotEmpty(t, finished.Error)
}

func TestForcePeriodRequeuesRun(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	submitted, err := fx.svc.Submit(ctx, SubmitRequest{Files: []string{"assets.pdf"}})
	require.NoError(t, err)
	require.Len(t, fx.queue.tasks, 1)

	requeued, err := fx.svc.ForcePeriod(ctx, submitted.ID, "25/08")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPending, requeued.Status)

	require.Len(t, fx.queue.tasks, 2)
	var payload TaskPayload
	require.NoError(t, json.Unmarshal(fx.queue.tasks[1].Payload, &payload))
	assert.Equal(t, "2508", payload.ForcedPeriod)
}

func TestForcePeriodRejectsMalformedValue(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.svc.ForcePeriod(context.Background(), "run-x", "13月")
	assert.Error(t, err)
}

func TestTaskStatusReadsQueueMirror(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	_, err := fx.svc.TaskStatus(ctx, "run-x")
	assert.Error(t, err)

	require.NoError(t, fx.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
		TaskID: "run-x", Status: "completed", Progress: 1.0,
	}))
	status, err := fx.svc.TaskStatus(ctx, "run-x")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
}

func TestCancelPendingRun(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	submitted, err := fx.svc.Submit(ctx, SubmitRequest{Files: []string{"ledger.pdf"}})
	require.NoError(t, err)

	cancelled, err := fx.svc.Cancel(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, cancelled.Status)
	assert.Equal(t, "cancelled before processing", cancelled.Error)
	assert.Equal(t, []string{submitted.ID}, fx.queue.cancelled)

	saved, err := fx.history.GetRun(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, saved.Status)
}

func TestCancelRejectsFinishedRun(t *testing.T) {
	fx := newFixture(t, map[string][]string{
		"ledger.pdf": {"総勘定元帳 株式会社サンプル 現金 普通預金 売掛金 摘要 残高"},
	})
	ctx := context.Background()

	submitted, err := fx.svc.Submit(ctx, SubmitRequest{Files: []string{"ledger.pdf"}, Period: "2508"})
	require.NoError(t, err)
	_, err = fx.svc.Execute(ctx, TaskPayload{RunID: submitted.ID})
	require.NoError(t, err)

	_, err = fx.svc.Cancel(ctx, submitted.ID)
	assert.Error(t, err)
	assert.Empty(t, fx.queue.cancelled)
}

func TestExportWritesCSV(t *testing.T) {
	fx := newFixture(t, map[string][]string{
		"ledger.pdf": {"総勘定元帳 株式会社サンプル 現金 普通預金 売掛金 摘要 残高"},
	})
	ctx := context.Background()

	submitted, err := fx.svc.Submit(ctx, SubmitRequest{Files: []string{"ledger.pdf"}, Period: "2508"})
	require.NoError(t, err)
	_, err = fx.svc.Execute(ctx, TaskPayload{RunID: submitted.ID})
	require.NoError(t, err)

	path, err := fx.svc.Export(ctx, submitted.ID, "csv")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "5002_総勘定元帳_2508.pdf")

	_, err = fx.svc.Export(ctx, submitted.ID, "pdf")
	assert.Error(t, err)
}
