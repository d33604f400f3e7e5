package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maauso/charactercast-api/internal/job"
)

// Reader fetches the current projection of a job.
type Reader interface {
	Status(ctx context.Context, id string) (job.View, error)
}

// Watcher runs at most one polling loop per job id. Create one per client
// context; watchers share no state.
type Watcher struct {
	reader Reader
	policy Policy
	logger *slog.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(w *Watcher) {
		w.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a Watcher reading through reader.
func NewWatcher(reader Reader, opts ...Option) *Watcher {
	w := &Watcher{
		reader:  reader,
		policy:  DefaultPolicy(),
		logger:  slog.Default(),
		handles: make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts polling id and calls onUpdate with every successful read.
// While a loop for id is running, Watch returns its handle instead of
// starting another one; onUpdate is ignored in that case.
func (w *Watcher) Watch(ctx context.Context, id string, onUpdate func(job.View)) *Handle {
	w.mu.Lock()
	defer w.mu.Unlock()

	if h, ok := w.handles[id]; ok {
		return h
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{id: id, cancel: cancel, done: make(chan struct{})}
	w.handles[id] = h

	go func() {
		defer func() {
			w.mu.Lock()
			if w.handles[id] == h {
				delete(w.handles, id)
			}
			w.mu.Unlock()
			cancel()
			close(h.done)
		}()
		h.view, h.err = w.loop(ctx, id, onUpdate)
	}()
	return h
}

// Active returns the number of running loops.
func (w *Watcher) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.handles)
}

func (w *Watcher) loop(ctx context.Context, id string, onUpdate func(job.View)) (job.View, error) {
	var last job.View
	for attempt := 0; ; attempt++ {
		v, err := w.reader.Status(ctx, id)
		if err != nil {
			w.logger.Warn("status read failed, stopping", slog.String("job_id", id), slog.String("error", err.Error()))
			return last, err
		}
		last = v
		if onUpdate != nil {
			onUpdate(v)
		}
		if v.IsTerminal() {
			return v, nil
		}

		delay := w.policy.Delay(v.Status, attempt)
		w.logger.Debug("job still running",
			slog.String("job_id", id),
			slog.String("status", string(v.Status)),
			slog.Duration("next_poll", delay),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return last, ctx.Err()
		case <-t.C:
		}
	}
}

// Handle controls one polling loop.
type Handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	view   job.View
	err    error
}

// ID returns the watched job id.
func (h *Handle) ID() string {
	return h.id
}

// Cancel stops the loop. Wait then returns context.Canceled.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed when the loop has stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the loop stops and returns the last view read and the
// reason the loop stopped, nil when the job reached a terminal status.
func (h *Handle) Wait() (job.View, error) {
	<-h.done
	return h.view, h.err
}
