package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/service/run"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
	"github.com/taxkit/tax-document-renamer/pkg/queue"
)

type fakeRunService struct {
	executed []run.TaskPayload
	result   models.Run
	err      error
}

func (s *fakeRunService) Submit(context.Context, run.SubmitRequest) (models.Run, error) {
	return models.Run{}, nil
}

func (s *fakeRunService) Execute(_ context.Context, payload run.TaskPayload) (models.Run, error) {
	s.executed = append(s.executed, payload)
	return s.result, s.err
}

func (s *fakeRunService) GetRun(context.Context, string) (models.Run, error) {
	return models.Run{}, nil
}

func (s *fakeRunService) ListRuns(context.Context, int) ([]models.Run, error) { return nil, nil }

func (s *fakeRunService) ListDecisions(context.Context, string) ([]models.DecisionRecord, error) {
	return nil, nil
}

func (s *fakeRunService) ForcePeriod(context.Context, string, string) (models.Run, error) {
	return models.Run{}, nil
}

func (s *fakeRunService) TaskStatus(context.Context, string) (*queue.TaskStatus, error) {
	return nil, fmt.Errorf("not found")
}

func (s *fakeRunService) Cancel(context.Context, string) (models.Run, error) {
	return models.Run{}, nil
}

func (s *fakeRunService) Export(context.Context, string, string) (string, error) { return "", nil }

type statusRecorder struct {
	mu       sync.Mutex
	statuses []*queue.TaskStatus
}

func (r *statusRecorder) Enqueue(context.Context, *queue.Task) error { return nil }

func (r *statusRecorder) GetTaskStatus(context.Context, string) (*queue.TaskStatus, error) {
	return nil, fmt.Errorf("not found")
}

func (r *statusRecorder) CancelTask(context.Context, string) error { return nil }

func (r *statusRecorder) SaveFinalStatus(_ context.Context, status *queue.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func newTestWorker(t *testing.T, svc run.Processor) (*RunWorker, *statusRecorder) {
	t.Helper()
	recorder := &statusRecorder{}
	w, err := NewRunWorker(&Config{
		RedisAddr:   "localhost:6379",
		Concurrency: 1,
		Queues:      map[string]int{"default": 1},
	}, svc, recorder, logger.NewTestLogger())
	require.NoError(t, err)
	return w, recorder
}

func runTask(t *testing.T, payload run.TaskPayload) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	envelope, err := json.Marshal(queue.Task{
		ID:        payload.RunID,
		Type:      queue.TaskTypeRunProcess,
		Payload:   raw,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return asynq.NewTask(queue.TaskTypeRunProcess, envelope)
}

func TestHandleRunProcessPublishesCompletion(t *testing.T) {
	svc := &fakeRunService{result: models.Run{ID: "run-1", Status: models.RunStatusCompleted}}
	w, recorder := newTestWorker(t, svc)

	err := w.handleRunProcess(context.Background(), runTask(t, run.TaskPayload{RunID: "run-1"}))
	require.NoError(t, err)

	require.Len(t, svc.executed, 1)
	assert.Equal(t, "run-1", svc.executed[0].RunID)

	require.Len(t, recorder.statuses, 2)
	assert.Equal(t, "running", recorder.statuses[0].Status)
	assert.Equal(t, "completed", recorder.statuses[1].Status)
	assert.Equal(t, 1.0, recorder.statuses[1].Progress)
	assert.False(t, recorder.statuses[1].FinishedAt.IsZero())
}

func TestHandleRunProcessFailedRunIsFinal(t *testing.T) {
	svc := &fakeRunService{result: models.Run{
		ID:     "run-2",
		Status: models.RunStatusFailed,
		Error:  "special jurisdiction must occupy slot 1",
	}}
	w, recorder := newTestWorker(t, svc)

	// A deterministic run failure must not be surfaced as a task error,
	// or asynq would retry the same outcome.
	err := w.handleRunProcess(context.Background(), runTask(t, run.TaskPayload{RunID: "run-2"}))
	require.NoError(t, err)

	require.Len(t, recorder.statuses, 2)
	assert.Equal(t, "failed", recorder.statuses[1].Status)
	assert.Equal(t, "special jurisdiction must occupy slot 1", recorder.statuses[1].Error)
}

func TestHandleRunProcessInfraErrorIsRetryable(t *testing.T) {
	svc := &fakeRunService{err: fmt.Errorf("history store unavailable")}
	w, recorder := newTestWorker(t, svc)

	err := w.handleRunProcess(context.Background(), runTask(t, run.TaskPayload{RunID: "run-3"}))
	require.Error(t, err)

	require.Len(t, recorder.statuses, 2)
	assert.Equal(t, "failed", recorder.statuses[1].Status)
	assert.Contains(t, recorder.statuses[1].Error, "history store unavailable")
}

func TestHandleRunProcessRejectsEmptyRunID(t *testing.T) {
	svc := &fakeRunService{}
	w, recorder := newTestWorker(t, svc)

	err := w.handleRunProcess(context.Background(), runTask(t, run.TaskPayload{}))
	require.Error(t, err)
	assert.Empty(t, svc.executed)
	assert.Empty(t, recorder.statuses)
}
