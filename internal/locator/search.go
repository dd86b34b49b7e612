package locator

// Phase is a state of the boundary search.
type Phase int

const (
	PhaseProbeLow Phase = iota
	PhaseExpand
	PhaseBisect
	PhaseDone
	PhaseNotFound
)

func (p Phase) String() string {
	switch p {
	case PhaseProbeLow:
		return "probe-low"
	case PhaseExpand:
		return "expand"
	case PhaseBisect:
		return "bisect"
	case PhaseDone:
		return "done"
	case PhaseNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// search is the immutable state of an adaptive boundary search.
// Invariants once a good index is known: good < high, and every index
// <= good exists. high is known bad only when highBad is set.
type search struct {
	phase Phase

	low     int // candidate anchor while in PhaseProbeLow
	good    int // highest index known to exist
	high    int // ceiling; known bad once highBad is true
	highBad bool

	// result holds lastExclusive once phase is PhaseDone.
	result int
}

func newSearch(low, ceiling int) search {
	if low < 0 {
		low = 0
	}
	if ceiling <= low {
		ceiling = low + 1
	}
	return search{phase: PhaseProbeLow, low: low, high: ceiling}
}

// next returns the index to probe in the current state. It settles
// terminal states that need no probe, so the caller loops until finished.
func (s search) next() (search, int) {
	switch s.phase {
	case PhaseProbeLow:
		return s, s.low

	case PhaseExpand:
		mid := (s.good + s.high) / 2
		if mid == s.good {
			// Ceiling is adjacent to the known-good index.
			if s.highBad {
				return s.done(), -1
			}
			return s, s.high
		}
		return s, mid

	case PhaseBisect:
		if s.high-s.good <= 1 {
			return s.done(), -1
		}
		return s, (s.good + s.high) / 2
	}
	return s, -1
}

// observe applies the result of probing index to the state.
func (s search) observe(index int, ok bool) search {
	switch s.phase {
	case PhaseProbeLow:
		if ok {
			s.good = index
			s.phase = PhaseExpand
			return s
		}
		if index == 0 {
			s.phase = PhaseNotFound
			return s
		}
		// Anchor was already past the end: re-anchor downward.
		s.high, s.highBad = index, true
		s.low = index / 2
		return s

	case PhaseExpand:
		if index == s.high {
			if !ok {
				s.highBad = true
				return s.done()
			}
			// The ceiling itself exists: keep climbing past it.
			s.good = s.high
			s.high *= 2
			return s
		}
		if ok {
			s.good = index
			return s
		}
		s.high, s.highBad = index, true
		s.phase = PhaseBisect
		return s

	case PhaseBisect:
		if ok {
			s.good = index
		} else {
			s.high = index
		}
		return s
	}
	return s
}

func (s search) done() search {
	s.phase = PhaseDone
	s.result = s.good + 1
	return s
}

func (s search) finished() bool {
	return s.phase == PhaseDone || s.phase == PhaseNotFound
}
