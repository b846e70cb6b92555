// Package history persists runs and their decisions in SQLite so a prior
// run can be reviewed or re-exported after the process restarts.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/taxkit/tax-document-renamer/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	files        TEXT NOT NULL,
	period       TEXT NOT NULL DEFAULT '',
	slots        TEXT NOT NULL DEFAULT '[]',
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS decisions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL REFERENCES runs(id),
	source        TEXT NOT NULL,
	page_index    INTEGER NOT NULL,
	ordinal       INTEGER NOT NULL,
	original_code TEXT NOT NULL DEFAULT '',
	final_code    TEXT NOT NULL DEFAULT '',
	label         TEXT NOT NULL DEFAULT '',
	period        TEXT NOT NULL DEFAULT '',
	period_source TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL DEFAULT 0,
	final_name    TEXT NOT NULL DEFAULT '',
	evidence      TEXT NOT NULL DEFAULT '[]',
	skipped       INTEGER NOT NULL DEFAULT 0,
	skip_reason   TEXT NOT NULL DEFAULT '',
	failed        INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
`

// Store wraps the SQLite handle. Safe for concurrent use; database/sql
// serializes access and WAL keeps readers unblocked.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or updates one run row.
func (s *Store) SaveRun(ctx context.Context, run models.Run) error {
	files, err := json.Marshal(run.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}
	slots, err := json.Marshal(run.Slots)
	if err != nil {
		return fmt.Errorf("marshal slots: %w", err)
	}

	var completed any
	if !run.CompletedAt.IsZero() {
		completed = run.CompletedAt
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, files, period, slots, status, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		run.ID, string(files), run.Period, string(slots), string(run.Status), run.Error, run.CreatedAt, completed,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun loads one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (models.Run, error) {
	var (
		run       models.Run
		files     string
		slots     string
		status    string
		completed sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, files, period, slots, status, error, created_at, completed_at
		FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &files, &run.Period, &slots, &status, &run.Error, &run.CreatedAt, &completed)
	if err != nil {
		return models.Run{}, fmt.Errorf("get run %s: %w", id, err)
	}

	run.Status = models.RunStatus(status)
	if completed.Valid {
		run.CompletedAt = completed.Time
	}
	if err := json.Unmarshal([]byte(files), &run.Files); err != nil {
		return models.Run{}, fmt.Errorf("unmarshal files: %w", err)
	}
	if err := json.Unmarshal([]byte(slots), &run.Slots); err != nil {
		return models.Run{}, fmt.Errorf("unmarshal slots: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]models.Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// SaveDecisions appends the records of one run in a single transaction.
func (s *Store) SaveDecisions(ctx context.Context, records []models.DecisionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (
			run_id, source, page_index, ordinal, original_code, final_code,
			label, period, period_source, confidence, final_name, evidence,
			skipped, skip_reason, failed, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		evidence, err := json.Marshal(rec.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence: %w", err)
		}
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err = stmt.ExecContext(ctx,
			rec.RunID, rec.Source, rec.PageIndex, rec.Ordinal, rec.OriginalCode,
			rec.FinalCode, rec.Label, rec.Period, string(rec.PeriodSource),
			rec.Confidence, rec.FinalName, string(evidence),
			rec.Skipped, rec.SkipReason, rec.Failed, rec.Error, createdAt,
		)
		if err != nil {
			return fmt.Errorf("insert decision: %w", err)
		}
	}
	return tx.Commit()
}

// ListDecisions returns the records of one run in page order.
func (s *Store) ListDecisions(ctx context.Context, runID string) ([]models.DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, page_index, ordinal, original_code, final_code,
			label, period, period_source, confidence, final_name, evidence,
			skipped, skip_reason, failed, error, created_at
		FROM decisions WHERE run_id = ?
		ORDER BY source, page_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var records []models.DecisionRecord
	for rows.Next() {
		var (
			rec          models.DecisionRecord
			periodSource string
			evidence     string
		)
		err := rows.Scan(
			&rec.RunID, &rec.Source, &rec.PageIndex, &rec.Ordinal,
			&rec.OriginalCode, &rec.FinalCode, &rec.Label, &rec.Period,
			&periodSource, &rec.Confidence, &rec.FinalName, &evidence,
			&rec.Skipped, &rec.SkipReason, &rec.Failed, &rec.Error, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		rec.PeriodSource = models.PeriodSource(periodSource)
		if err := json.Unmarshal([]byte(evidence), &rec.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
