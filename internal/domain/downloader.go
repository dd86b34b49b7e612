package domain

import "time"

// Outcome classifies what happened to one index during a run.
type Outcome string

const (
	OutcomePresent          Outcome = "present"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeTransientFailure Outcome = "transient_failure"
	OutcomePermanentFailure Outcome = "permanent_failure"
)

// Failed reports whether the outcome is one of the failure kinds.
func (o Outcome) Failed() bool {
	return o == OutcomeTransientFailure || o == OutcomePermanentFailure
}

// SegmentJob is the unit of work a worker executes for one index.
type SegmentJob struct {
	Index      int
	URL        string
	RetryCount int
}

// SegmentResult is threaded back from a worker to the scheduler's join point.
type SegmentResult struct {
	Job     SegmentJob
	Outcome Outcome
	Bytes   int64
	Elapsed time.Duration
	Error   error
}

// Balance selects how Partition distributes the remainder of an uneven split.
type Balance string

const (
	// BalanceRemainderLast gives the whole remainder to the last worker.
	BalanceRemainderLast Balance = "last"
	// BalanceSpread hands one extra index to each of the first workers.
	BalanceSpread Balance = "spread"
)

// RunConfig is the immutable description of one pipeline invocation.
// Stop == 0 asks the locator to discover the boundary.
type RunConfig struct {
	Template Template
	Start    int
	Stop     int
	OutDir   string
	Output   string
	Workers  int
	Balance  Balance
}

// HasStop reports whether the caller supplied an explicit upper bound.
func (c RunConfig) HasStop() bool { return c.Stop > 0 }
