package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/datallboy/segfetch/internal/app"
	"github.com/datallboy/segfetch/internal/assembler"
	"github.com/datallboy/segfetch/internal/domain"
	"github.com/datallboy/segfetch/internal/infra/config"
	"github.com/datallboy/segfetch/internal/locator"
	"github.com/datallboy/segfetch/internal/source"
	"github.com/datallboy/segfetch/internal/store"
)

// Downloader runs the full pipeline: resolve the boundary, fetch every
// segment, then hand the ordered list to the reassembler.
type Downloader struct {
	ctx         *app.Context
	client      *source.Client
	reassembler assembler.Reassembler

	// ProgressOut receives the CLI progress bar when download.progress is on.
	ProgressOut io.Writer
}

func NewDownloader(ctx *app.Context, client *source.Client, r assembler.Reassembler) *Downloader {
	if r == nil {
		r = assembler.Noop{}
	}
	return &Downloader{ctx: ctx, client: client, reassembler: r}
}

// NewReassembler maps the configured mode onto an implementation.
func NewReassembler(mode string) assembler.Reassembler {
	switch mode {
	case config.ReassembleList:
		return assembler.ConcatList{}
	case config.ReassembleNone:
		return assembler.Noop{}
	default:
		return assembler.ByteConcat{}
	}
}

// Run processes one RunConfig from start to finish. On partial failure the
// returned error is a *domain.PartialFailureError and nothing is reassembled.
func (d *Downloader) Run(ctx context.Context, cfg domain.RunConfig) (*RunResult, error) {
	log := d.ctx.Logger

	if cfg.Template.IsZero() {
		return nil, errors.New("run has no source template")
	}
	if cfg.Start < 0 {
		return nil, fmt.Errorf("%w: start %d is negative", domain.ErrInvalidBound, cfg.Start)
	}

	segs, err := store.OpenSegmentStore(cfg.OutDir, store.SegmentOptions{
		PadWidth:  d.ctx.Config.Download.PadWidth,
		Extension: d.ctx.Config.Source.Extension,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create out_dir: %w", err)
	}
	defer segs.Close()

	policy := d.policy()

	src := source.NewSegments(cfg.Template, d.client, policy)
	src.OnRetry(func(attempt int, delay time.Duration, err error) {
		log.Warn("[Retry] Probe attempt %d/%d in %s - Error: %v", attempt, policy.Retries, delay.Truncate(time.Millisecond), err)
	})

	log.Info("start: %d, stop: %d, out: %s, max_workers: %d", cfg.Start, cfg.Stop, cfg.Output, cfg.Workers)

	loc := locator.New(src.Probe, locator.Options{
		InitialLow: d.ctx.Config.Probe.InitialLow,
		Ceiling:    d.ctx.Config.Probe.Ceiling,
		Logger:     log,
	})

	stop, err := loc.Resolve(ctx, cfg.Stop)
	if err != nil {
		return nil, fmt.Errorf("resolve boundary: %w", err)
	}
	log.Info("Boundary resolved to %d after %d probe(s)", stop, loc.Probes())

	if cfg.Start > stop {
		return nil, fmt.Errorf("%w: start %d is past the last segment %d", domain.ErrInvalidBound, cfg.Start, stop)
	}
	r := domain.NewRange(cfg.Start, stop)

	rec := &domain.RunRecord{
		ID:       ksuid.New().String(),
		Template: cfg.Template.String(),
		Start:    r.Start,
		Stop:     r.Stop,
		Output:   cfg.Output,
		Workers:  EffectiveWorkers(r.Len(), cfg.Workers),
		Status:   domain.RunRunning,
	}
	d.createRun(ctx, rec)

	result := &RunResult{ID: rec.ID, Range: r, Output: cfg.Output}

	report, err := d.schedule(ctx, src, segs, r, cfg)
	result.Report = report
	if report != nil {
		rec.Fetched = report.Fetched
		rec.Skipped = report.Skipped
		rec.Bytes = report.Bytes
		d.logSummary(report)
	}

	var partial *domain.PartialFailureError
	if err != nil {
		if errors.As(err, &partial) {
			rec.Status = domain.RunPartial
			rec.FailedIndices = partial.Indices()
		} else {
			rec.Status = domain.RunFailed
		}
		rec.Error = err.Error()
		d.finishRun(rec)
		return result, err
	}

	manifest, err := assembler.New(segs).OrderedPaths(ctx, r)
	if err != nil {
		rec.Status = domain.RunFailed
		rec.Error = err.Error()
		d.finishRun(rec)
		return result, err
	}
	result.Manifest = manifest

	if !manifest.Complete() {
		// Something removed segments behind our back.
		err := fmt.Errorf("%d segment(s) missing after fetch, first: %d", len(manifest.Missing), manifest.Missing[0])
		rec.Status = domain.RunFailed
		rec.Error = err.Error()
		d.finishRun(rec)
		return result, err
	}

	if cfg.Output != "" && len(manifest.Paths) > 0 {
		log.Info("Reassembling %d segment(s) into %s", len(manifest.Paths), cfg.Output)
		if err := d.reassembler.Reassemble(ctx, manifest.Paths, cfg.Output); err != nil {
			rec.Status = domain.RunFailed
			rec.Error = err.Error()
			d.finishRun(rec)
			return result, fmt.Errorf("reassembly failed: %w", err)
		}
	}

	rec.Status = domain.RunCompleted
	d.finishRun(rec)

	return result, nil
}

func (d *Downloader) schedule(ctx context.Context, src *source.Segments, segs *store.SegmentStore, r domain.Range, cfg domain.RunConfig) (*Report, error) {
	opts := SchedulerOptions{
		Policy:  d.policy(),
		Balance: cfg.Balance,
		Logger:  d.ctx.Logger,
	}

	if d.ctx.Config.Download.Progress {
		progress := NewProgress(d.ProgressOut, r.Len())
		opts.Observer = progress

		pctx, stopProgress := context.WithCancel(ctx)
		rendered := make(chan struct{})
		go func() {
			defer close(rendered)
			progress.Start(pctx)
		}()
		defer func() {
			stopProgress()
			<-rendered
			progress.Finish()
		}()
	}

	d.ctx.Logger.Info("Fetching %d segment(s) in [%d:%d) with %d worker(s)",
		r.Len(), r.Start, r.Stop, EffectiveWorkers(r.Len(), cfg.Workers))

	return NewScheduler(src, segs, opts).Run(ctx, r, cfg.Workers)
}

func (d *Downloader) policy() source.Policy {
	p := source.DefaultPolicy()
	rc := d.ctx.Config.Retry
	p.Retries = rc.Attempts
	if rc.Backoff > 0 {
		p.Backoff = rc.Backoff
	}
	if rc.MaxBackoff > 0 {
		p.MaxBackoff = rc.MaxBackoff
	}
	return p
}

// logSummary prints the closing line: segment count, worker count,
// wall time and seconds per segment.
func (d *Downloader) logSummary(rep *Report) {
	n := rep.Total()
	perSegment := 0.0
	if n > 0 {
		perSegment = rep.Elapsed.Seconds() / float64(n)
	}
	d.ctx.Logger.Info("DONE: %d segment(s) over %d worker(s) took %s (%.3fs per segment) | fetched: %d, skipped: %d, failed: %d, %d MB",
		n, len(rep.Partitions), rep.Elapsed.Truncate(time.Millisecond), perSegment,
		rep.Fetched, rep.Skipped, len(rep.Failed), rep.Bytes/1024/1024)
}

func (d *Downloader) createRun(ctx context.Context, rec *domain.RunRecord) {
	if d.ctx.History == nil {
		return
	}
	if err := d.ctx.History.CreateRun(ctx, rec); err != nil {
		d.ctx.Logger.Warn("Could not record run %s: %v", rec.ID, err)
	}
}

// finishRun records the terminal state even when the run's context is
// already cancelled.
func (d *Downloader) finishRun(rec *domain.RunRecord) {
	if d.ctx.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.ctx.History.FinishRun(ctx, rec); err != nil {
		d.ctx.Logger.Warn("Could not finish run %s: %v", rec.ID, err)
	}
}
