// Package loop runs a cycle function on a fixed interval.
//
// The first cycle starts immediately. Every tick starts the cycle in its own
// goroutine; a tick that arrives while the previous cycle is still running is
// skipped and logged.
package loop

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultTimeoutFactor bounds a cycle to this many intervals when no timeout is set.
const DefaultTimeoutFactor = 3

// Stats is a snapshot of a loop's counters.
type Stats struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Runs         int           `json:"runs"`
	Skipped      int           `json:"skipped"`
	Running      bool          `json:"running"`
	LastRun      time.Time     `json:"last_run,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
}

// CycleFunc is one unit of work. ctx is cancelled when the cycle times out.
type CycleFunc func(ctx context.Context)

// Options configures Runner.
type Options struct {
	Name     string
	Interval time.Duration // required
	// Timeout bounds a single cycle. 0 uses DefaultTimeoutFactor * Interval.
	Timeout time.Duration
	Cycle   CycleFunc // required
	Logger  *log.Logger
}

// Runner drives a CycleFunc on a ticker with an "already running" guard.
type Runner struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	cycle    CycleFunc
	logger   *log.Logger

	wg sync.WaitGroup

	mu           sync.Mutex
	running      bool
	runs         int
	skipped      int
	lastRun      time.Time
	lastDuration time.Duration
}

// New creates a Runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeoutFactor * opts.Interval
	}
	return &Runner{
		name:     opts.Name,
		interval: opts.Interval,
		timeout:  timeout,
		cycle:    opts.Cycle,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, then waits for the in-flight cycle.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("Starting %s loop (interval: %v)...", r.name, r.interval)

	r.Trigger(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			r.Trigger(ctx)
		}
	}
}

// Trigger starts a cycle unless one is already running.
// Returns false when the cycle was skipped.
func (r *Runner) Trigger(ctx context.Context) bool {
	r.mu.Lock()
	if r.running {
		r.skipped++
		r.mu.Unlock()
		r.logger.Printf("%s cycle already running, skipping...", r.name)
		return false
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		start := time.Now()
		defer func() {
			r.mu.Lock()
			r.running = false
			r.runs++
			r.lastRun = start
			r.lastDuration = time.Since(start)
			r.mu.Unlock()
		}()

		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		r.cycle(cctx)
	}()
	return true
}

// Wait blocks until the in-flight cycle, if any, finishes.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Stats returns a snapshot of the loop counters.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		Name:         r.name,
		Interval:     r.interval,
		Runs:         r.runs,
		Skipped:      r.skipped,
		Running:      r.running,
		LastRun:      r.lastRun,
		LastDuration: r.lastDuration,
	}
}
