package engine

import "github.com/datallboy/segfetch/internal/domain"

// Partition splits r into contiguous, disjoint, ascending sub-ranges, one per
// effective worker. The effective worker count is min(workers, r.Len()) and
// never less than one.
//
// With BalanceRemainderLast every worker but the last gets Len/W indices and
// the last one absorbs the remainder. BalanceSpread hands the remainder out
// one index at a time to the first workers instead.
func Partition(r domain.Range, workers int, balance domain.Balance) []domain.Range {
	total := r.Len()
	w := EffectiveWorkers(total, workers)

	if total == 0 {
		return []domain.Range{r}
	}

	chunk := total / w
	rem := total % w

	parts := make([]domain.Range, 0, w)
	start := r.Start
	for i := 0; i < w; i++ {
		size := chunk
		switch balance {
		case domain.BalanceSpread:
			if i < rem {
				size++
			}
		default:
			if i == w-1 {
				size += rem
			}
		}
		parts = append(parts, domain.Range{Start: start, Stop: start + size})
		start += size
	}

	return parts
}

// EffectiveWorkers returns min(workers, total), clamped to at least one.
func EffectiveWorkers(total, workers int) int {
	w := workers
	if total < w {
		w = total
	}
	if w < 1 {
		w = 1
	}
	return w
}
