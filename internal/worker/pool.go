// Package worker provides a parallel worker pool for pixel-range tasks.
package worker

import (
	"context"
	"sync"
	"time"
)

// Processor is the interface for processing one task.
type Processor interface {
	Process(ctx context.Context, task Task) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, task Task) error

// Process calls f(ctx, task).
func (f ProcessorFunc) Process(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// Task is a half-open range [Start, End) of pixel indices.
type Task struct {
	ID    int
	Start int
	End   int
}

// Len returns the number of pixels covered by the task.
func (t Task) Len() int {
	return t.End - t.Start
}

// Result represents the outcome of a task.
type Result struct {
	Task    Task
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Processor  Processor
	OnProgress ProgressFunc
}

// Pool runs tasks in parallel.
type Pool struct {
	workers    int
	processor  Processor
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		processor:  cfg.Processor,
		onProgress: cfg.OnProgress,
	}
}

// Split divides n items into at most parts contiguous tasks of near-equal size.
func Split(n, parts int) []Task {
	if n <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	tasks := make([]Task, 0, parts)
	size := n / parts
	rem := n % parts
	start := 0
	for i := 0; i < parts; i++ {
		end := start + size
		if i < rem {
			end++
		}
		tasks = append(tasks, Task{ID: i, Start: start, End: end})
		start = end
	}
	return tasks
}

// Run executes all tasks and returns results.
// Tasks are processed in parallel by the configured number of workers.
// The function blocks until all tasks complete or the context is cancelled.
// Tasks not started before cancellation are reported with the context error.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	// The channel is buffered for every task, so feeding never blocks.
	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		completed, failed := 0, 0
		for result := range resultCh {
			results = append(results, result)

			completed++
			if result.Err != nil {
				failed++
			}

			if p.onProgress != nil {
				p.onProgress(completed, len(tasks), failed)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)

	<-done

	return results
}

// worker processes tasks from the task channel and sends results to the result channel.
func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{
				Task: task,
				Err:  ctx.Err(),
			}
			continue
		default:
		}

		start := time.Now()
		err := p.processor.Process(ctx, task)

		results <- Result{
			Task:    task,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}

// FirstError returns the first non-nil error in results, in task order.
func FirstError(results []Result) error {
	var (
		first   error
		firstID = -1
	)
	for _, r := range results {
		if r.Err != nil && (firstID < 0 || r.Task.ID < firstID) {
			first, firstID = r.Err, r.Task.ID
		}
	}
	return first
}
