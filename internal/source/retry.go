package source

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/datallboy/segfetch/internal/domain"
)

// Policy retries transient failures with exponential backoff.
type Policy struct {
	// Retries is the number of attempts made after the first one.
	Retries int

	// Backoff is the delay before the first retry; it doubles each time.
	Backoff time.Duration

	// MaxBackoff caps a single delay.
	MaxBackoff time.Duration

	// Jitter scales each delay by a random factor in [0.5, 1.5).
	Jitter bool
}

// DefaultPolicy waits 2s, 4s, 8s between attempts.
func DefaultPolicy() Policy {
	return Policy{
		Retries:    3,
		Backoff:    2 * time.Second,
		MaxBackoff: 30 * time.Second,
		Jitter:     true,
	}
}

// RetryFunc is notified before each retry is scheduled.
type RetryFunc func(attempt int, delay time.Duration, err error)

// Do runs fn until it succeeds, fails with a non-transient error, or the
// retries are spent. It returns the number of attempts made.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error, onRetry RetryFunc) (int, error) {
	attempt := 0
	for {
		attempt++
		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		if !domain.IsTransient(err) || attempt > p.Retries {
			return attempt, err
		}

		delay := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Delay returns the wait after the given (1-based) failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Backoff * time.Duration(1<<uint(attempt-1))
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if p.Jitter && d > 0 {
		d = time.Duration(float64(d) * (0.5 + rand.Float64()))
	}
	return d
}
