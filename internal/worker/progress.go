package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultRedrawInterval limits how often a Progress repaints its line.
// Chunked pixel work reports far more often than a terminal needs.
const DefaultRedrawInterval = 100 * time.Millisecond

// Snapshot is the state of a Progress at one point in time.
type Snapshot struct {
	Completed int
	Total     int
	Failed    int
	Elapsed   time.Duration
}

// Rate returns completed tasks per second.
func (s Snapshot) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Completed) / s.Elapsed.Seconds()
}

// Fraction returns the completed share in [0, 1].
func (s Snapshot) Fraction() float64 {
	if s.Total <= 0 {
		return 0
	}
	f := float64(s.Completed) / float64(s.Total)
	if f > 1 {
		f = 1
	}
	return f
}

// Remaining estimates the time left from the current rate, or 0 when unknown.
func (s Snapshot) Remaining() time.Duration {
	rate := s.Rate()
	if rate <= 0 || s.Completed >= s.Total {
		return 0
	}
	return time.Duration(float64(s.Total-s.Completed) / rate * float64(time.Second))
}

// Progress draws task progress on a single terminal line.
type Progress struct {
	output   io.Writer
	start    time.Time
	lastDraw time.Time
	unit     string
	snap     Snapshot
	interval time.Duration
	mu       sync.Mutex
	enabled  bool
}

// NewProgress creates a progress line for total tasks; total may be 0 when the
// count is only known from the first update.
// unit names the counted items in output, e.g. "chunks".
func NewProgress(total int, unit string, enabled bool) *Progress {
	if unit == "" {
		unit = "tasks"
	}
	return &Progress{
		output:   os.Stderr,
		start:    time.Now(),
		unit:     unit,
		snap:     Snapshot{Total: total},
		interval: DefaultRedrawInterval,
		enabled:  enabled,
	}
}

// Update records progress and redraws the line if it is enabled and the
// redraw interval has passed. The final update is always drawn.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snap.Completed = completed
	p.snap.Total = total
	p.snap.Failed = failed

	if !p.enabled {
		return
	}
	now := time.Now()
	if completed < total && now.Sub(p.lastDraw) < p.interval {
		return
	}
	p.lastDraw = now
	p.drawLocked(now)
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.snap
	s.Elapsed = time.Since(p.start)
	return s
}

// Done draws the final state and ends the line.
func (p *Progress) Done() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drawLocked(time.Now())
	fmt.Fprintln(p.output)
}

// Summary returns a one-line account of the finished work.
func (p *Progress) Summary() string {
	s := p.Snapshot()
	return fmt.Sprintf("%d of %d %s succeeded, %d failed, took %s (%.1f %s/s)",
		s.Completed-s.Failed, s.Total, p.unit, s.Failed, formatDuration(s.Elapsed), s.Rate(), p.unit)
}

func (p *Progress) drawLocked(now time.Time) {
	s := p.snap
	s.Elapsed = now.Sub(p.start)
	// Trailing spaces clear what a longer previous line left behind.
	fmt.Fprint(p.output, "\r"+renderLine(s, p.unit)+"    ")
}

const barWidth = 24

// renderLine formats a snapshot, e.g.
//
//	50% [############------------] 5/10 chunks, 1 failed, 0.5 chunks/s, 10s left
func renderLine(s Snapshot, unit string) string {
	frac := s.Fraction()
	filled := int(frac * barWidth)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%3.0f%% [%s%s] %d/%d %s",
		frac*100,
		strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled),
		s.Completed, s.Total, unit)

	if s.Failed > 0 {
		fmt.Fprintf(&sb, ", %d failed", s.Failed)
	}
	fmt.Fprintf(&sb, ", %.1f %s/s", s.Rate(), unit)

	if s.Total > 0 && s.Completed >= s.Total {
		fmt.Fprintf(&sb, ", done in %s", formatDuration(s.Elapsed))
	} else if left := s.Remaining(); left > 0 {
		fmt.Fprintf(&sb, ", %s left", formatDuration(left))
	}

	return sb.String()
}

// formatDuration rounds to milliseconds below a second and to seconds above.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
