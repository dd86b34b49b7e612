// Package assembler turns the segments on disk into an ordered hand-off for
// reassembly. Order always follows the index, never completion time.
package assembler

import (
	"context"
	"fmt"
	"sort"

	"github.com/datallboy/segfetch/internal/domain"
)

// Lister is the read side of the segment store.
type Lister interface {
	Indices(ctx context.Context) ([]int, error)
	PathFor(index int) string
}

// Manifest is the ordered view of a range.
type Manifest struct {
	Range   domain.Range
	Paths   []string
	Indices []int
	// Missing lists indices of the range with no stored segment.
	Missing []int
}

// Complete reports whether every index of the range is present.
func (m *Manifest) Complete() bool { return len(m.Missing) == 0 }

type Assembler struct {
	store Lister
}

func New(store Lister) *Assembler {
	return &Assembler{store: store}
}

// OrderedPaths lists the stored segments that fall inside r in ascending
// index order. Stored indices outside r are ignored.
func (a *Assembler) OrderedPaths(ctx context.Context, r domain.Range) (*Manifest, error) {
	stored, err := a.store.Indices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}

	idx := make([]int, 0, len(stored))
	for _, i := range stored {
		if r.Contains(i) {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)

	m := &Manifest{
		Range:   r,
		Indices: idx,
		Paths:   make([]string, len(idx)),
	}
	for n, i := range idx {
		m.Paths[n] = a.store.PathFor(i)
	}

	// Walk the range against the sorted indices to find gaps.
	next := 0
	for i := r.Start; i < r.Stop; i++ {
		if next < len(idx) && idx[next] == i {
			next++
			continue
		}
		m.Missing = append(m.Missing, i)
	}

	return m, nil
}
