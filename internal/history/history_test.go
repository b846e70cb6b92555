package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxkit/tax-document-renamer/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := models.Run{
		ID:     "run-1",
		Files:  []string{"bundle.pdf", "ledger.pdf"},
		Period: "2508",
		Slots: []models.JurisdictionSlot{
			{Index: 1, Prefecture: "東京都"},
			{Index: 2, Prefecture: "愛知県", Municipality: "蒲郡市"},
		},
		Status:    models.RunStatusPending,
		CreatedAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Files, got.Files)
	assert.Equal(t, run.Slots, got.Slots)
	assert.Equal(t, models.RunStatusPending, got.Status)
	assert.True(t, got.CompletedAt.IsZero())
}

func TestSaveRunUpdatesStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := models.Run{
		ID:        "run-1",
		Files:     []string{"a.pdf"},
		Status:    models.RunStatusProcessing,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.SaveRun(ctx, run))

	run.Status = models.RunStatusCompleted
	run.CompletedAt = time.Now().Truncate(time.Second)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestSaveAndListDecisions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, models.Run{
		ID: "run-1", Files: []string{"bundle.pdf"},
		Status: models.RunStatusCompleted, CreatedAt: time.Now(),
	}))

	records := []models.DecisionRecord{
		{
			RunID: "run-1", Source: "bundle.pdf", PageIndex: 1, Ordinal: 2,
			FinalCode: "1013", OriginalCode: "1003", Label: "受信通知",
			Period: "2508", PeriodSource: models.PeriodSourceUI,
			Confidence: 1.0, FinalName: "1013_受信通知_2508.pdf",
			Evidence:  []string{"sequence resolved 1003 -> 1013 (pref/愛知県)"},
			CreatedAt: time.Now(),
		},
		{
			RunID: "run-1", Source: "bundle.pdf", PageIndex: 0, Ordinal: 1,
			FinalCode: "1003", Label: "受信通知", Period: "2508",
			PeriodSource: models.PeriodSourceUI, Confidence: 1.0,
			FinalName: "1003_受信通知_2508.pdf", CreatedAt: time.Now(),
		},
	}
	require.NoError(t, s.SaveDecisions(ctx, records))

	got, err := s.ListDecisions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Page order, not insertion order.
	assert.Equal(t, 0, got[0].PageIndex)
	assert.Equal(t, 1, got[1].PageIndex)
	assert.Equal(t, "1013", got[1].FinalCode)
	assert.Equal(t, []string{"sequence resolved 1003 -> 1013 (pref/愛知県)"}, got[1].Evidence)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, s.SaveRun(ctx, models.Run{
			ID: id, Files: []string{"f.pdf"}, Status: models.RunStatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}
