package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound means the boundary search found no valid segment at all.
var ErrNotFound = errors.New("no valid segment found")

// ErrInvalidBound means an explicit stop index failed its validation probe.
var ErrInvalidBound = errors.New("explicit stop bound failed validation")

// ErrSegmentNotFound indicates a definitive "absent" response (404/410).
var ErrSegmentNotFound = errors.New("segment not found")

// ErrNoIndexInTemplate indicates the source URL has no recognisable index.
var ErrNoIndexInTemplate = errors.New("url has no segment index")

// TransientError wraps a failure that may succeed on retry:
// timeouts, refused connections, 5xx and 429 responses.
type TransientError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient error during %s for %s: status %d: %v", e.Op, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("transient error during %s for %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or anything it wraps) is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// FailedSegment records a segment that exhausted its attempts.
type FailedSegment struct {
	Index    int
	Outcome  Outcome
	Attempts int
	Err      error
}

// PartialFailureError is returned when a run finished but some segments
// could not be fetched. Use errors.As to inspect Failed.
type PartialFailureError struct {
	Failed []FailedSegment
}

func (e *PartialFailureError) Error() string {
	idx := e.Indices()
	shown := idx
	if len(shown) > 10 {
		shown = shown[:10]
	}
	parts := make([]string, len(shown))
	for i, n := range shown {
		parts[i] = fmt.Sprint(n)
	}
	msg := fmt.Sprintf("%d segment(s) failed: %s", len(idx), strings.Join(parts, ","))
	if len(idx) > len(shown) {
		msg += ",..."
	}
	return msg
}

// Indices returns the failed indices in ascending order.
func (e *PartialFailureError) Indices() []int {
	out := make([]int, len(e.Failed))
	for i, f := range e.Failed {
		out[i] = f.Index
	}
	sort.Ints(out)
	return out
}
