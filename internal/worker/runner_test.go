package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestRunner(opts ...RunnerOption) (*Runner, *syncBuffer) {
	out := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewRunner(append([]RunnerOption{WithLogger(logger)}, opts...)...), out
}

func TestRunner_OutlivesParentContext(t *testing.T) {
	r, _ := newTestRunner()
	parent, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	result := make(chan error, 1)
	require.NoError(t, r.Go(parent, "detached", func(ctx context.Context) error {
		<-release
		result <- ctx.Err()
		return nil
	}))

	cancel()
	close(release)

	select {
	case err := <-result:
		assert.NoError(t, err, "task context must not inherit cancellation")
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	require.NoError(t, r.Shutdown(context.Background()))
}

func TestRunner_LogsErrors(t *testing.T) {
	r, out := newTestRunner()

	require.NoError(t, r.Go(context.Background(), "video:job-1", func(context.Context) error {
		return errors.New("provider down")
	}))
	require.NoError(t, r.Shutdown(context.Background()))

	assert.Contains(t, out.String(), "background task failed")
	assert.Contains(t, out.String(), "video:job-1")
	assert.Contains(t, out.String(), "provider down")
}

func TestRunner_RecoversPanics(t *testing.T) {
	r, out := newTestRunner()

	require.NoError(t, r.Go(context.Background(), "boom", func(context.Context) error {
		panic("nil map")
	}))
	require.NoError(t, r.Shutdown(context.Background()))

	assert.Contains(t, out.String(), "task panicked: nil map")
	assert.Zero(t, r.InFlight())
}

func TestRunner_Timeout(t *testing.T) {
	r, _ := newTestRunner(WithTimeout(20 * time.Millisecond))

	result := make(chan error, 1)
	require.NoError(t, r.Go(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timeout not applied")
	}
}

func TestRunner_ShutdownWaitsAndRejects(t *testing.T) {
	r, _ := newTestRunner()

	release := make(chan struct{})
	require.NoError(t, r.Go(context.Background(), "blocked", func(context.Context) error {
		<-release
		return nil
	}))
	assert.Equal(t, 1, r.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.ErrorIs(t, r.Go(context.Background(), "late", func(context.Context) error { return nil }), ErrShuttingDown)

	close(release)
	require.NoError(t, r.Shutdown(context.Background()))
	assert.Zero(t, r.InFlight())
}
