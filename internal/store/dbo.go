package store

import (
	"database/sql"
	"time"

	"github.com/datallboy/segfetch/internal/domain"
)

// runDBO maps to the runs table
type runDBO struct {
	ID         string         `db:"id"`
	Template   string         `db:"template"`
	Start      int            `db:"range_start"`
	Stop       int            `db:"range_stop"`
	Output     string         `db:"output"`
	Workers    int            `db:"workers"`
	Status     string         `db:"status"`
	Fetched    int            `db:"fetched"`
	Skipped    int            `db:"skipped"`
	Bytes      int64          `db:"bytes"`
	Error      sql.NullString `db:"error"`
	StartedAt  int64          `db:"started_at"`
	FinishedAt sql.NullInt64  `db:"finished_at"`
}

// Mapper: DBO to Domain RunRecord
func (r *runDBO) ToDomain(failed []int) *domain.RunRecord {
	rec := &domain.RunRecord{
		ID:            r.ID,
		Template:      r.Template,
		Start:         r.Start,
		Stop:          r.Stop,
		Output:        r.Output,
		Workers:       r.Workers,
		Status:        domain.RunStatus(r.Status),
		Fetched:       r.Fetched,
		Skipped:       r.Skipped,
		Bytes:         r.Bytes,
		FailedIndices: failed,
		Error:         r.Error.String,
		StartedAt:     time.UnixMilli(r.StartedAt).UTC(),
	}

	if r.FinishedAt.Valid {
		t := time.UnixMilli(r.FinishedAt.Int64).UTC()
		rec.FinishedAt = &t
	}

	return rec
}

// Mapper: Domain RunRecord to DBO
func (r *runDBO) FromDomain(rec *domain.RunRecord) {
	r.ID = rec.ID
	r.Template = rec.Template
	r.Start = rec.Start
	r.Stop = rec.Stop
	r.Output = rec.Output
	r.Workers = rec.Workers
	r.Status = string(rec.Status)
	r.Fetched = rec.Fetched
	r.Skipped = rec.Skipped
	r.Bytes = rec.Bytes
	r.Error = sql.NullString{String: rec.Error, Valid: rec.Error != ""}

	if !rec.StartedAt.IsZero() {
		r.StartedAt = rec.StartedAt.UnixMilli()
	} else {
		r.StartedAt = 0
	}

	if rec.FinishedAt != nil {
		r.FinishedAt = sql.NullInt64{Int64: rec.FinishedAt.UnixMilli(), Valid: true}
	}
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

const runColumns = `id, template, range_start, range_stop, output, workers, status, fetched, skipped, bytes, error, started_at, finished_at`

func scanRun(sc scanner) (*runDBO, error) {
	var r runDBO
	err := sc.Scan(
		&r.ID, &r.Template, &r.Start, &r.Stop, &r.Output, &r.Workers, &r.Status,
		&r.Fetched, &r.Skipped, &r.Bytes, &r.Error, &r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
