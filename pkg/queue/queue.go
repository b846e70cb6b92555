// Package queue wraps asynq for run processing tasks. Task status is
// mirrored into redis so the API can answer status queries after asynq
// has pruned the task.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	cfg "github.com/taxkit/tax-document-renamer/config"
)

// Task types handled by the workers.
const (
	TaskTypeRunProcess = "run:process"
)

// Queue is the producer-side interface the API depends on.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	CancelTask(ctx context.Context, taskID string) error
	SaveFinalStatus(ctx context.Context, status *TaskStatus) error
}

// Task is the envelope put on the wire. Payload stays opaque here; the
// worker for the task type knows how to decode it.
type Task struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// TaskStatus is the externally visible state of a task.
type TaskStatus struct {
	TaskID     string    `json:"taskId"`
	Status     string    `json:"status"`
	Progress   float64   `json:"progress"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// AsynqQueue implements Queue on asynq with a redis status mirror.
type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
}

// QueueConfig tunes the asynq client side.
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MaxRetries    int
	RetryDelay    time.Duration
	TaskTimeout   time.Duration
}

// GetQueue builds a queue from the environment redis settings.
func GetQueue() (*AsynqQueue, error) {
	rc := cfg.GetRedisConfig()
	return NewAsynqQueue(&QueueConfig{
		RedisAddr:     rc.Addr,
		RedisPassword: rc.Password,
		RedisDB:       rc.DB,
		MaxRetries:    3,
		RetryDelay:    1 * time.Minute,
		TaskTimeout:   30 * time.Minute,
	})
}

func NewAsynqQueue(qc *QueueConfig) (*AsynqQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     qc.RedisAddr,
		Password: qc.RedisPassword,
		DB:       qc.RedisDB,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     qc.RedisAddr,
		Password: qc.RedisPassword,
		DB:       qc.RedisDB,
	})

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis:     redisClient,
	}, nil
}

// Enqueue serializes the task and routes it to a priority queue.
func (q *AsynqQueue) Enqueue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(30 * time.Minute),
		asynq.TaskID(task.ID),
	}

	switch task.Priority {
	case 1:
		opts = append(opts, asynq.Queue("critical"))
	case 2:
		opts = append(opts, asynq.Queue("default"))
	default:
		opts = append(opts, asynq.Queue("low"))
	}

	t := asynq.NewTask(task.Type, payload, opts...)
	info, err := q.client.EnqueueContext(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	task.ID = info.ID

	return nil
}

// GetTaskStatus reads the redis mirror first and falls back to asynq's
// inspector while the task is still live.
func (q *AsynqQueue) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	key := fmt.Sprintf("task_status:%s", taskID)
	data, err := q.redis.Get(ctx, key).Bytes()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}

	if err == nil {
		var status TaskStatus
		if err := json.Unmarshal(data, &status); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status: %w", err)
		}
		return &status, nil
	}

	queues := []string{"critical", "default", "low"}
	var info *asynq.TaskInfo
	var lastErr error
	for _, queueName := range queues {
		info, err = q.inspector.GetTaskInfo(queueName, taskID)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, fmt.Errorf("task not found in any queue: %w", lastErr)
	}

	status := convertAsynqStatus(info)
	if err := q.SaveFinalStatus(ctx, status); err != nil {
		return status, nil
	}
	return status, nil
}

// CancelTask removes a pending task from whichever queue holds it.
func (q *AsynqQueue) CancelTask(ctx context.Context, taskID string) error {
	queues := []string{"critical", "default", "low"}
	var lastErr error
	for _, queueName := range queues {
		err := q.inspector.DeleteTask(queueName, taskID)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to cancel task: %w", lastErr)
}

// SaveFinalStatus writes the status mirror with a 24h TTL.
func (q *AsynqQueue) SaveFinalStatus(ctx context.Context, status *TaskStatus) error {
	key := fmt.Sprintf("task_status:%s", status.TaskID)
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := q.redis.Set(ctx, key, data, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func convertAsynqStatus(info *asynq.TaskInfo) *TaskStatus {
	status := &TaskStatus{
		TaskID:    info.ID,
		StartedAt: info.NextProcessAt,
	}

	switch info.State {
	case asynq.TaskStatePending:
		status.Status = "pending"
	case asynq.TaskStateActive:
		status.Status = "running"
		status.Progress = 0.5
	case asynq.TaskStateCompleted:
		status.Status = "completed"
		status.Progress = 1.0
		status.FinishedAt = info.CompletedAt
	case asynq.TaskStateRetry, asynq.TaskStateArchived:
		status.Status = "failed"
		status.Error = info.LastErr
	}

	return status
}
