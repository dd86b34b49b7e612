package engine

import (
	"context"
	"io"
	"time"

	"github.com/datallboy/segfetch/internal/assembler"
	"github.com/datallboy/segfetch/internal/domain"
)

// Fetcher retrieves the body of one segment. Implementations report a
// definitive absence with domain.ErrSegmentNotFound and retryable failures
// with *domain.TransientError.
type Fetcher interface {
	Fetch(ctx context.Context, index int) (io.ReadCloser, error)
	URL(index int) string
}

// Store is the part of the segment store the scheduler writes through.
type Store interface {
	Present(ctx context.Context, index int) (bool, error)
	WriteFrom(ctx context.Context, index int, r io.Reader) (int64, error)
}

// Observer is told about every status change of a segment. Calls come from
// worker goroutines concurrently.
type Observer interface {
	SegmentStatus(index int, status domain.SegmentStatus)
	SegmentDone(res domain.SegmentResult)
}

// Report summarises one scheduler run.
type Report struct {
	Range      domain.Range
	Partitions []domain.Range
	Fetched    int
	Skipped    int
	Failed     []domain.FailedSegment
	Bytes      int64
	Elapsed    time.Duration
}

// Total is the number of indices the run covered.
func (r *Report) Total() int { return r.Range.Len() }

// RunResult is returned by Downloader.Run.
type RunResult struct {
	ID       string
	Range    domain.Range
	Report   *Report
	Manifest *assembler.Manifest
	Output   string
}
