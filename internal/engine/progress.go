package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/datallboy/segfetch/internal/domain"
)

// Progress is an Observer that renders a single-line CLI progress bar.
type Progress struct {
	out       io.Writer
	total     int64
	done      atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	bytes     atomic.Int64
	startedAt time.Time
}

// NewProgress tracks total segments. A nil writer renders to stdout.
func NewProgress(out io.Writer, total int) *Progress {
	if out == nil {
		out = os.Stdout
	}
	return &Progress{out: out, total: int64(total), startedAt: time.Now()}
}

func (p *Progress) SegmentStatus(int, domain.SegmentStatus) {}

func (p *Progress) SegmentDone(res domain.SegmentResult) {
	switch {
	case res.Outcome == domain.OutcomeSkipped:
		p.skipped.Add(1)
	case res.Outcome.Failed():
		p.failed.Add(1)
	}
	p.bytes.Add(res.Bytes)
	p.done.Add(1)
}

// Done returns the number of segments that reached a final outcome.
func (p *Progress) Done() int { return int(p.done.Load()) }

// Start renders once per second until ctx is cancelled.
func (p *Progress) Start(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastDone int64

	for {
		select {
		case <-ticker.C:
			current := p.done.Load()
			rate := float64(current - lastDone)
			lastDone = current

			p.Render(rate, false)
		case <-ctx.Done():
			return
		}
	}
}

// Finish prints the final line with averages instead of instantaneous rates.
func (p *Progress) Finish() {
	p.Render(0, true)
	fmt.Fprintln(p.out)
}

// Render writes one progress line. rate is segments per second.
func (p *Progress) Render(rate float64, final bool) {
	if p.total == 0 {
		return
	}

	current := p.done.Load()
	elapsed := time.Since(p.startedAt)
	percent := float64(current) / float64(p.total) * 100

	displayRate := rate
	etaStr := "calc..."

	if final {
		// Guard against division by zero or sub-millisecond durations
		seconds := elapsed.Seconds()
		if seconds < 0.1 {
			seconds = 0.1
		}
		fetched := current - p.skipped.Load() - p.failed.Load()
		displayRate = float64(fetched) / seconds
	} else {
		avgPerSec := float64(current) / elapsed.Seconds()
		if avgPerSec > 0 {
			remaining := p.total - current
			etaSeconds := int(float64(remaining) / avgPerSec)
			etaStr = (time.Duration(etaSeconds) * time.Second).String()
		}
	}

	// Progress Bar go brrr [====>   ]
	const barWidth = 20
	completedWidth := int(percent / 100 * barWidth)
	if completedWidth > barWidth {
		completedWidth = barWidth
	}
	bar := strings.Repeat("=", completedWidth)
	if completedWidth < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-completedWidth-1)
	}

	rateLabel := "Rate"
	timeLabel := "ETA"
	if final {
		rateLabel = "Avg"
		timeLabel = "Time"
		etaStr = elapsed.Truncate(time.Second).String()
	}

	fmt.Fprintf(p.out, "\r[%s] %5.1f%% | %s: %6.2f seg/s | %s: %-7s | %d/%d seg | %d failed | %d MB      ",
		bar, percent, rateLabel, displayRate, timeLabel, etaStr,
		current, p.total, p.failed.Load(), p.bytes.Load()/1024/1024)
}
