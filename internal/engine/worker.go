package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/datallboy/segfetch/internal/domain"
	"github.com/datallboy/segfetch/internal/infra/logger"
	"github.com/datallboy/segfetch/internal/source"
)

type SchedulerOptions struct {
	// Policy bounds the attempts spent on one segment.
	Policy source.Policy

	// Balance picks how an uneven range is split between workers.
	Balance domain.Balance

	// Observer receives status transitions. Optional.
	Observer Observer

	Logger *logger.Logger
}

// Scheduler fans a range out to one goroutine per partition. Workers share
// nothing but the store, whose keys are disjoint per index.
type Scheduler struct {
	src   Fetcher
	store Store
	opts  SchedulerOptions
	log   *logger.Logger
}

func NewScheduler(src Fetcher, store Store, opts SchedulerOptions) *Scheduler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{src: src, store: store, opts: opts, log: log}
}

// Run fetches every index of r that the store does not already hold and
// blocks until all workers have joined. A failing segment never stops its
// siblings; failures are collected into a *domain.PartialFailureError.
func (s *Scheduler) Run(ctx context.Context, r domain.Range, workers int) (*Report, error) {
	started := time.Now()
	parts := Partition(r, workers, s.opts.Balance)

	// Each worker owns its slot; merged after the join.
	results := make([][]domain.SegmentResult, len(parts))

	var wg sync.WaitGroup
	for i, part := range parts {
		s.log.Debug("worker %d | range [%d:%d)", i, part.Start, part.Stop)

		wg.Add(1)
		go func(id int, part domain.Range) {
			defer wg.Done()
			results[id] = s.worker(ctx, id, part)
		}(i, part)
	}
	wg.Wait()

	report := &Report{Range: r, Partitions: parts}
	for _, rs := range results {
		for _, res := range rs {
			report.Bytes += res.Bytes
			switch res.Outcome {
			case domain.OutcomePresent:
				report.Fetched++
			case domain.OutcomeSkipped:
				report.Skipped++
			default:
				report.Failed = append(report.Failed, domain.FailedSegment{
					Index:    res.Job.Index,
					Outcome:  res.Outcome,
					Attempts: res.Job.RetryCount + 1,
					Err:      res.Error,
				})
			}
		}
	}
	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].Index < report.Failed[j].Index
	})
	report.Elapsed = time.Since(started)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if len(report.Failed) > 0 {
		return report, &domain.PartialFailureError{Failed: report.Failed}
	}

	return report, nil
}

// worker walks its partition in ascending order until it is done or the
// context is cancelled.
func (s *Scheduler) worker(ctx context.Context, id int, part domain.Range) []domain.SegmentResult {
	out := make([]domain.SegmentResult, 0, part.Len())

	for idx := part.Start; idx < part.Stop; idx++ {
		if ctx.Err() != nil {
			return out
		}

		res := s.processSegment(ctx, idx)
		if ctx.Err() != nil && res.Outcome.Failed() {
			// Interrupted mid-segment: neither done nor a real failure.
			s.status(idx, domain.StatusMissing)
			return out
		}

		out = append(out, res)
		if s.opts.Observer != nil {
			s.opts.Observer.SegmentDone(res)
		}

		progress := float64(idx-part.Start+1) / float64(part.Len()) * 100
		s.log.Debug("worker %d | range [%d:%d) | segment %d %s | progress: %.1f%%",
			id, part.Start, part.Stop, idx, res.Outcome, progress)
	}

	return out
}

// processSegment handles the pipeline for a single index: skip if present,
// otherwise fetch and stream to the store under the retry policy.
func (s *Scheduler) processSegment(ctx context.Context, idx int) domain.SegmentResult {
	started := time.Now()
	job := domain.SegmentJob{Index: idx, URL: s.src.URL(idx)}
	res := domain.SegmentResult{Job: job}

	present, err := s.store.Present(ctx, idx)
	if err != nil {
		res.Outcome = domain.OutcomePermanentFailure
		res.Error = fmt.Errorf("check segment %d: %w", idx, err)
		res.Elapsed = time.Since(started)
		return res
	}
	if present {
		s.status(idx, domain.StatusPresent)
		res.Outcome = domain.OutcomeSkipped
		res.Elapsed = time.Since(started)
		return res
	}

	s.status(idx, domain.StatusDownloading)

	var written int64
	attempts, err := s.opts.Policy.Do(ctx, func(int) error {
		n, err := s.fetchOne(ctx, job)
		written = n
		return err
	}, func(attempt int, delay time.Duration, err error) {
		s.log.Warn("[Retry] Segment %d: Attempt %d/%d in %s - Error: %v",
			idx, attempt, s.opts.Policy.Retries, delay.Truncate(time.Millisecond), err)
	})

	res.Job.RetryCount = attempts - 1
	res.Elapsed = time.Since(started)

	if err != nil {
		res.Error = err
		res.Outcome = domain.OutcomePermanentFailure
		if domain.IsTransient(err) {
			res.Outcome = domain.OutcomeTransientFailure
		}
		if ctx.Err() == nil {
			s.log.Error("[FAIL] Segment %d failed after %d attempt(s): %v", idx, attempts, err)
		}
		s.status(idx, domain.StatusMissing)
		return res
	}

	res.Outcome = domain.OutcomePresent
	res.Bytes = written
	s.status(idx, domain.StatusPresent)
	return res
}

// fetchOne performs a single attempt. A stream that breaks mid-body is
// retryable; the store never commits a partial write.
func (s *Scheduler) fetchOne(ctx context.Context, job domain.SegmentJob) (int64, error) {
	body, err := s.src.Fetch(ctx, job.Index)
	if err != nil {
		return 0, err
	}
	if body == nil {
		return 0, fmt.Errorf("fetcher returned nil body for segment %d", job.Index)
	}
	defer body.Close()

	n, err := s.store.WriteFrom(ctx, job.Index, body)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return n, err
		}
		return n, &domain.TransientError{Op: "stream", URL: job.URL, Err: err}
	}
	return n, nil
}

func (s *Scheduler) status(idx int, st domain.SegmentStatus) {
	if s.opts.Observer != nil {
		s.opts.Observer.SegmentStatus(idx, st)
	}
}
