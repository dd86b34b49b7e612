package locator

import (
	"context"
	"fmt"

	"github.com/datallboy/segfetch/internal/domain"
	"github.com/datallboy/segfetch/internal/infra/logger"
)

// ProbeFunc checks whether index exists. (false, nil) is a definitive
// absence; a non-nil error means the probe could not be answered.
type ProbeFunc func(ctx context.Context, index int) (bool, error)

// Options configures the search.
type Options struct {
	// InitialLow is the first index probed. Default: 1
	InitialLow int

	// Ceiling is the initial upper guess. It is not a hard limit: the
	// search keeps climbing when the ceiling itself exists. Default: 10000
	Ceiling int

	Logger *logger.Logger
}

// DefaultOptions mirrors the classic anchor of 1 and guess of 10000.
func DefaultOptions() Options {
	return Options{InitialLow: 1, Ceiling: 10000}
}

// Locator finds the exclusive upper index of a segment sequence.
type Locator struct {
	probe ProbeFunc
	opts  Options
	log   *logger.Logger

	probes int
}

func New(probe ProbeFunc, opts Options) *Locator {
	if opts.InitialLow <= 0 {
		opts.InitialLow = 1
	}
	if opts.Ceiling <= opts.InitialLow {
		opts.Ceiling = 10000
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Locator{probe: probe, opts: opts, log: log}
}

// Probes returns how many probes the last call issued.
func (l *Locator) Probes() int { return l.probes }

// Resolve validates stop when it is positive, otherwise runs the search.
func (l *Locator) Resolve(ctx context.Context, stop int) (int, error) {
	if stop > 0 {
		return l.Validate(ctx, stop)
	}
	return l.Locate(ctx)
}

// Validate accepts a caller-supplied stop after a single probe at stop-1.
// The bound is trusted as given; no tightness check is made.
func (l *Locator) Validate(ctx context.Context, stop int) (int, error) {
	l.probes = 0
	if stop <= 0 {
		return 0, fmt.Errorf("%w: stop must be positive, got %d", domain.ErrInvalidBound, stop)
	}

	ok, err := l.do(ctx, stop-1)
	if err != nil {
		return 0, fmt.Errorf("validate stop %d: %w", stop, err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: index %d does not exist", domain.ErrInvalidBound, stop-1)
	}
	return stop, nil
}

// Locate searches for the boundary with no known upper bound and returns
// one past the highest index that exists.
func (l *Locator) Locate(ctx context.Context) (int, error) {
	l.probes = 0
	s := newSearch(l.opts.InitialLow, l.opts.Ceiling)

	for !s.finished() {
		var index int
		s, index = s.next()
		if s.finished() {
			break
		}

		ok, err := l.do(ctx, index)
		if err != nil {
			return 0, fmt.Errorf("locate boundary (%s at %d): %w", s.phase, index, err)
		}
		s = s.observe(index, ok)
	}

	if s.phase == PhaseNotFound {
		return 0, domain.ErrNotFound
	}

	l.log.Info("Boundary found: %d segments (%d probes)", s.result, l.probes)
	return s.result, nil
}

func (l *Locator) do(ctx context.Context, index int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.probes++
	ok, err := l.probe(ctx, index)
	if err != nil {
		l.log.Warn("Probe %d failed: %v", index, err)
		return false, err
	}
	l.log.Debug("Probe %d: ok=%t", index, ok)
	return ok, nil
}
