package run

import (
	"context"

	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/pkg/queue"
)

// Processor is the run lifecycle shared by the API and the workers: the
// API submits and inspects runs, a worker executes them.
type Processor interface {
	Submit(ctx context.Context, req SubmitRequest) (models.Run, error)
	Execute(ctx context.Context, payload TaskPayload) (models.Run, error)
	GetRun(ctx context.Context, id string) (models.Run, error)
	ListRuns(ctx context.Context, limit int) ([]models.Run, error)
	ListDecisions(ctx context.Context, runID string) ([]models.DecisionRecord, error)
	ForcePeriod(ctx context.Context, runID, period string) (models.Run, error)
	TaskStatus(ctx context.Context, runID string) (*queue.TaskStatus, error)
	Cancel(ctx context.Context, runID string) (models.Run, error)
	Export(ctx context.Context, runID, format string) (string, error)
}

// SubmitRequest describes one run submission. Files must already be on
// disk; the API handler saves uploads before calling Submit.
type SubmitRequest struct {
	Files      []string                  `json:"files"`
	Period     string                    `json:"period,omitempty"`
	Slots      []models.JurisdictionSlot `json:"slots,omitempty"`
	ForceSplit bool                      `json:"force_split,omitempty"`
}

// TaskPayload is the queue payload for one run task. ForcedPeriod is set
// on explicit user override and takes the UI_FORCED period source.
type TaskPayload struct {
	RunID        string `json:"run_id"`
	ForceSplit   bool   `json:"force_split,omitempty"`
	ForcedPeriod string `json:"forced_period,omitempty"`
}
