package source

import (
	"context"
	"io"

	"github.com/datallboy/segfetch/internal/domain"
)

// Segments addresses segments by index on top of a Client.
type Segments struct {
	tpl     domain.Template
	client  *Client
	policy  Policy
	onRetry RetryFunc
}

func NewSegments(tpl domain.Template, client *Client, policy Policy) *Segments {
	return &Segments{tpl: tpl, client: client, policy: policy}
}

// OnRetry installs a hook called before every probe retry.
func (s *Segments) OnRetry(fn RetryFunc) { s.onRetry = fn }

func (s *Segments) URL(index int) string { return s.tpl.URL(index) }

// Probe checks whether index exists. Transient failures are retried under
// the policy before being returned; they are never reported as "absent".
func (s *Segments) Probe(ctx context.Context, index int) (bool, error) {
	url := s.tpl.URL(index)

	var ok bool
	_, err := s.policy.Do(ctx, func(int) error {
		var err error
		ok, err = s.client.Probe(ctx, url)
		return err
	}, s.onRetry)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Fetch issues a single GET for index. Retrying is left to the scheduler,
// which owns the per-segment attempt budget.
func (s *Segments) Fetch(ctx context.Context, index int) (io.ReadCloser, error) {
	return s.client.Get(ctx, s.tpl.URL(index))
}
