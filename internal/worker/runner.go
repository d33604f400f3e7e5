// Package worker runs detached background tasks that outlive the request that
// started them. Task failures and panics are captured and logged; they never
// reach the caller.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrShuttingDown is returned by Go once Shutdown has been called.
var ErrShuttingDown = errors.New("worker: runner is shutting down")

// Task is a unit of detached work.
type Task func(ctx context.Context) error

// Launcher starts detached tasks. The caller receives an acknowledgement,
// never the task result.
type Launcher interface {
	Go(parent context.Context, name string, task Task) error
}

// Compile-time check that Runner implements Launcher.
var _ Launcher = (*Runner)(nil)

// Runner launches tasks in goroutines and tracks them until they finish.
type Runner struct {
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	closed   bool
	inflight int
	wg       sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTimeout bounds every task. Zero means no bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Go starts task on a context detached from parent's cancellation. Values
// carried by parent stay visible to the task.
func (r *Runner) Go(parent context.Context, name string, task Task) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrShuttingDown
	}
	r.inflight++
	r.wg.Add(1)
	r.mu.Unlock()

	ctx := context.WithoutCancel(parent)
	var cancel context.CancelFunc = func() {}
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	go func() {
		defer r.done()
		defer cancel()

		start := time.Now()
		err := r.run(ctx, task)
		if err != nil {
			r.logger.Error("background task failed",
				slog.String("task", name),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("error", err.Error()),
			)
			return
		}
		r.logger.Debug("background task finished",
			slog.String("task", name),
			slog.Duration("elapsed", time.Since(start)),
		)
	}()
	return nil
}

// run calls task and converts a panic into an error.
func (r *Runner) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("background task panic", slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("worker: task panicked: %v", p)
		}
	}()
	return task(ctx)
}

func (r *Runner) done() {
	r.mu.Lock()
	r.inflight--
	r.mu.Unlock()
	r.wg.Done()
}

// InFlight returns the number of running tasks.
func (r *Runner) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight
}

// Shutdown stops accepting tasks and waits for running ones until ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker: %d task(s) still running: %w", r.InFlight(), ctx.Err())
	}
}
