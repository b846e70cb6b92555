package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/service/run"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
	"github.com/taxkit/tax-document-renamer/pkg/queue"
)

// RunWorker consumes run:process tasks and drives them through the run
// service. Task progress is published to the queue's redis status mirror
// so the API can answer status queries after asynq prunes the task.
type RunWorker struct {
	BaseWorker
	runService run.Processor
	statuses   queue.Queue
}

func NewRunWorker(wc *Config, runService run.Processor, statuses queue.Queue, log logger.Logger) (*RunWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: wc.RedisAddr, Password: wc.RedisPassword, DB: wc.RedisDB},
		asynq.Config{
			Concurrency: wc.Concurrency,
			Queues:      wc.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &RunWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		runService: runService,
		statuses:   statuses,
	}

	w.registerHandlers()
	return w, nil
}

func (w *RunWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeRunProcess, w.handleRunProcess)
}

func (w *RunWorker) handleRunProcess(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	var payload run.TaskPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		w.logger.Error("failed to unmarshal run payload",
			logger.Error(err),
			logger.String("task_id", task.ID),
		)
		return fmt.Errorf("failed to unmarshal run payload: %w", err)
	}
	if payload.RunID == "" {
		return fmt.Errorf("run task %s has no run id", task.ID)
	}

	w.logger.Info("processing run task",
		logger.String("task_id", task.ID),
		logger.String("run_id", payload.RunID),
	)

	startedAt := time.Now()
	w.publishStatus(ctx, t, &queue.TaskStatus{
		TaskID:    task.ID,
		Status:    "running",
		StartedAt: startedAt,
	})

	finished, err := w.runService.Execute(ctx, payload)
	if err != nil {
		w.publishStatus(ctx, t, &queue.TaskStatus{
			TaskID:     task.ID,
			Status:     "failed",
			Error:      err.Error(),
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
		})
		return err
	}

	// Deterministic run failures are final; reporting them as task errors
	// would only make asynq retry the same outcome.
	if finished.Status == models.RunStatusFailed {
		w.publishStatus(ctx, t, &queue.TaskStatus{
			TaskID:     task.ID,
			Status:     "failed",
			Error:      finished.Error,
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
		})
		return nil
	}

	w.publishStatus(ctx, t, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     "completed",
		Progress:   1.0,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	})
	return nil
}

// publishStatus writes the redis status mirror and, when the task came
// through the server, the asynq result payload as well.
func (w *RunWorker) publishStatus(ctx context.Context, t *asynq.Task, status *queue.TaskStatus) {
	if err := w.statuses.SaveFinalStatus(ctx, status); err != nil {
		w.logger.Warn("failed to save task status", logger.Error(err))
	}
	if rw := t.ResultWriter(); rw != nil {
		data, err := json.Marshal(status)
		if err != nil {
			return
		}
		if _, err := rw.Write(data); err != nil {
			w.logger.Warn("failed to write task result", logger.Error(err))
		}
	}
}

func (w *RunWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
