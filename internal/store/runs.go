package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/datallboy/segfetch/internal/domain"
)

// CreateRun inserts a new run. An empty ID is filled with a fresh KSUID and
// a zero StartedAt with the current time.
func (s *HistoryStore) CreateRun(ctx context.Context, rec *domain.RunRecord) error {
	if rec.ID == "" {
		rec.ID = ksuid.New().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = domain.RunRunning
	}

	var r runDBO
	r.FromDomain(rec)

	query := `INSERT INTO runs (` + runColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Template, r.Start, r.Stop, r.Output, r.Workers, r.Status,
		r.Fetched, r.Skipped, r.Bytes, r.Error, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", rec.ID, err)
	}
	return nil
}

// FinishRun stores the terminal state of a run, including its failed indices.
func (s *HistoryStore) FinishRun(ctx context.Context, rec *domain.RunRecord) error {
	if rec.FinishedAt == nil {
		now := time.Now().UTC()
		rec.FinishedAt = &now
	}

	var r runDBO
	r.FromDomain(rec)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE runs
		SET range_start = ?, range_stop = ?, output = ?, workers = ?, status = ?,
		    fetched = ?, skipped = ?, bytes = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		r.Start, r.Stop, r.Output, r.Workers, r.Status,
		r.Fetched, r.Skipped, r.Bytes, r.Error, r.FinishedAt,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to finish run %s: %w", rec.ID, sql.ErrNoRows)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_failures WHERE run_id = ?`, r.ID); err != nil {
		return err
	}

	if len(rec.FailedIndices) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_failures (run_id, seg_index) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, idx := range rec.FailedIndices {
			if _, err := stmt.ExecContext(ctx, r.ID, idx); err != nil {
				return fmt.Errorf("failed to record failed segment %d: %w", idx, err)
			}
		}
	}

	return tx.Commit()
}

// GetRun returns nil, nil when no run has the given id.
func (s *HistoryStore) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ? LIMIT 1`, id)

	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Return nil, nil to indicate "Not found"
		}
		return nil, fmt.Errorf("failed to fetch run: %w", err)
	}

	failed, err := s.failedIndices(ctx, id)
	if err != nil {
		return nil, err
	}

	return r.ToDomain(failed), nil
}

// ListRuns returns up to limit runs, newest first.
func (s *HistoryStore) ListRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var dbos []*runDBO
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		dbos = append(dbos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	runs := make([]*domain.RunRecord, 0, len(dbos))
	for _, r := range dbos {
		failed, err := s.failedIndices(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r.ToDomain(failed))
	}

	return runs, nil
}

func (s *HistoryStore) failedIndices(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seg_index FROM run_failures WHERE run_id = ? ORDER BY seg_index ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch failed segments: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}
