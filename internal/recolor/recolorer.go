package recolor

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/hueswap/internal/worker"
)

// minChunkPixels keeps chunks large enough that scheduling stays cheap relative to the scan.
const minChunkPixels = 4096

// Stats summarizes one Recolorer run.
type Stats struct {
	// Matched holds the number of repainted pixels per rule, in rule order.
	Matched []int
	// Pixels is the number of pixels in the buffer.
	Pixels int
	// Skipped is the number of pixels below AlphaThreshold. They are skipped by every rule.
	Skipped int
	Elapsed time.Duration
}

// Config configures a Recolorer.
type Config struct {
	Logger     *slog.Logger
	OnProgress worker.ProgressFunc
	// Workers is the number of goroutines scanning a buffer (default: number of CPUs).
	Workers int
}

// Recolorer applies rules with the per-pixel scan of each rule split across workers.
// Rules still run one after another, since a later rule must see the earlier rule's writes.
type Recolorer struct {
	logger     *slog.Logger
	onProgress worker.ProgressFunc
	workers    int
}

// New creates a Recolorer.
func New(cfg Config) *Recolorer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Recolorer{
		workers:    workers,
		logger:     cfg.Logger,
		onProgress: cfg.OnProgress,
	}
}

// Recolor applies rules to buf in order, like the package-level Recolor.
//
// The scan runs on a scratch copy that is copied back into buf only when every rule
// completed, so a cancelled context leaves buf exactly as it was.
func (rc *Recolorer) Recolor(ctx context.Context, buf []byte, rules []Rule) (Stats, error) {
	if err := checkBuffer(buf); err != nil {
		return Stats{}, err
	}

	prepared, err := prepareRules(rules)
	if err != nil {
		return Stats{}, err
	}

	start := time.Now()
	pixels := len(buf) / BytesPerPixel
	stats := Stats{
		Pixels:  pixels,
		Matched: make([]int, len(prepared)),
	}

	scratch := make([]byte, len(buf))
	copy(scratch, buf)

	tasks := worker.Split(pixels, rc.chunks(pixels))

	for i, r := range prepared {
		var matched, skipped atomic.Int64

		proc := worker.ProcessorFunc(func(ctx context.Context, task worker.Task) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, s := applyRule(scratch[task.Start*BytesPerPixel:task.End*BytesPerPixel], r)
			matched.Add(int64(m))
			skipped.Add(int64(s))
			return nil
		})

		pool := worker.New(worker.Config{
			Workers:    rc.workers,
			Processor:  proc,
			OnProgress: rc.passProgress(i, len(prepared), len(tasks)),
		})

		if err := worker.FirstError(pool.Run(ctx, tasks)); err != nil {
			rc.log().Debug("recolor cancelled", "rule", r.String(), "pass", i, "error", err)
			return Stats{}, err
		}

		stats.Matched[i] = int(matched.Load())
		if i == 0 {
			stats.Skipped = int(skipped.Load())
		}

		rc.log().Debug("rule applied",
			"pass", i,
			"rule", r.String(),
			"matched", stats.Matched[i],
			"chunks", len(tasks),
		)
	}

	copy(buf, scratch)
	stats.Elapsed = time.Since(start)

	return stats, nil
}

// chunks returns how many tasks a buffer of the given size is split into.
func (rc *Recolorer) chunks(pixels int) int {
	n := pixels / minChunkPixels
	if n < 1 {
		n = 1
	}
	// A few chunks per worker smooths out uneven scan cost.
	if limit := rc.workers * 4; n > limit {
		n = limit
	}
	return n
}

// passProgress reports progress across all rule passes rather than per pass.
func (rc *Recolorer) passProgress(pass, passes, tasksPerPass int) worker.ProgressFunc {
	if rc.onProgress == nil {
		return nil
	}
	done := pass * tasksPerPass
	total := passes * tasksPerPass
	return func(completed, _, failed int) {
		rc.onProgress(done+completed, total, failed)
	}
}

func (rc *Recolorer) log() *slog.Logger {
	if rc.logger != nil {
		return rc.logger
	}
	return slog.Default()
}
