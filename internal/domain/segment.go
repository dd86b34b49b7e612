package domain

// SegmentStatus tracks a segment through a single run.
type SegmentStatus string

const (
	StatusMissing     SegmentStatus = "missing"
	StatusDownloading SegmentStatus = "downloading"
	StatusPresent     SegmentStatus = "present"
)

// Segment is one numbered chunk of the source stream. Identity is Index.
// Only the bytes on disk carry state; a Segment value is a view of them.
type Segment struct {
	Index     int
	URL       string
	LocalPath string
	Status    SegmentStatus
}

// ProbeResult is the outcome of one existence check.
type ProbeResult struct {
	Index int
	OK    bool
}

// Range is the half-open index interval [Start, Stop).
type Range struct {
	Start int
	Stop  int
}

// NewRange returns [start, stop), clamping stop so that Start <= Stop holds.
func NewRange(start, stop int) Range {
	if stop < start {
		stop = start
	}
	return Range{Start: start, Stop: stop}
}

func (r Range) Len() int {
	if r.Stop < r.Start {
		return 0
	}
	return r.Stop - r.Start
}

func (r Range) Empty() bool { return r.Len() == 0 }

func (r Range) Contains(index int) bool {
	return index >= r.Start && index < r.Stop
}

// Indices lists every index of the range in ascending order.
func (r Range) Indices() []int {
	out := make([]int, 0, r.Len())
	for i := r.Start; i < r.Stop; i++ {
		out = append(out, i)
	}
	return out
}
