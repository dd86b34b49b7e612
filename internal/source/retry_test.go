package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/datallboy/segfetch/internal/domain"
)

func TestPolicyDelay(t *testing.T) {
	p := Policy{Backoff: 2 * time.Second, MaxBackoff: 5 * time.Second}

	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 5*time.Second, p.Delay(3), "capped by MaxBackoff")
}

func TestPolicyDelayJitterBounds(t *testing.T) {
	p := Policy{Backoff: 100 * time.Millisecond, Jitter: true}
	for i := 0; i < 50; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.Less(t, d, 150*time.Millisecond)
	}
}

func TestPolicyDo(t *testing.T) {
	transient := &domain.TransientError{Op: "get", URL: "u", Err: errors.New("boom")}
	p := Policy{Retries: 3, Backoff: time.Millisecond}

	t.Run("stops on success", func(t *testing.T) {
		attempts, err := p.Do(context.Background(), func(n int) error {
			if n < 2 {
				return transient
			}
			return nil
		}, nil)
		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		attempts, err := p.Do(context.Background(), func(int) error {
			return domain.ErrSegmentNotFound
		}, nil)
		assert.ErrorIs(t, err, domain.ErrSegmentNotFound)
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after retries", func(t *testing.T) {
		attempts, err := p.Do(context.Background(), func(int) error { return transient }, nil)
		assert.True(t, domain.IsTransient(err))
		assert.Equal(t, 4, attempts)
	})

	t.Run("honours cancellation while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := Policy{Retries: 3, Backoff: time.Hour}
		_, err := slow.Do(ctx, func(int) error {
			cancel()
			return transient
		}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
