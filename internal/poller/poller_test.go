package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/charactercast-api/internal/job"
)

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 2*time.Second, p.Delay(job.StatusGeneratingScript, 0))
	assert.Equal(t, 3*time.Second, p.Delay(job.StatusGeneratingImage, 0))
	assert.Equal(t, 10*time.Second, p.Delay(job.StatusGeneratingVideo, 0))
	assert.Equal(t, 15*time.Second, p.Delay(job.StatusGeneratingVideo, 1))
	assert.Equal(t, 4500*time.Millisecond, p.Delay(job.StatusGeneratingAudio, 2))
	assert.Equal(t, 30*time.Second, p.Delay(job.StatusGeneratingVideo, 5), "capped")
	assert.Equal(t, 5*time.Second, p.Delay(job.Status("unknown"), 0))
	assert.Equal(t, 2*time.Second, p.Delay(job.StatusPending, -3))
}

func TestPolicy_DelayIsMonotonic(t *testing.T) {
	p := DefaultPolicy()
	prev := time.Duration(0)
	for attempt := 0; attempt < 12; attempt++ {
		d := p.Delay(job.StatusGeneratingImage, attempt)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

// scriptedReader returns statuses in order, then repeats the last.
type scriptedReader struct {
	mu       sync.Mutex
	statuses []job.Status
	err      error
	calls    int
	block    chan struct{}
}

func (r *scriptedReader) Status(ctx context.Context, id string) (job.View, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return job.View{}, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return job.View{}, r.err
	}
	i := min(r.calls, len(r.statuses)) - 1
	return job.View{ID: id, Status: r.statuses[i]}, nil
}

func (r *scriptedReader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func fastPolicy() Policy {
	return Policy{Default: time.Millisecond, Multiplier: 1.5, MaxDelay: 5 * time.Millisecond}
}

func newTestWatcher(r Reader) *Watcher {
	return NewWatcher(r, WithPolicy(fastPolicy()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestWatch_StopsAtTerminalStatus(t *testing.T) {
	reader := &scriptedReader{statuses: []job.Status{
		job.StatusGeneratingScript, job.StatusGeneratingAudio, job.StatusGeneratingVideo, job.StatusCompleted,
	}}
	w := newTestWatcher(reader)

	var mu sync.Mutex
	var seen []job.Status
	h := w.Watch(context.Background(), "job-1", func(v job.View) {
		mu.Lock()
		seen = append(seen, v.Status)
		mu.Unlock()
	})

	v, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, v.Status)
	assert.Equal(t, 4, reader.callCount())
	assert.Equal(t, []job.Status{
		job.StatusGeneratingScript, job.StatusGeneratingAudio, job.StatusGeneratingVideo, job.StatusCompleted,
	}, seen)
	assert.Zero(t, w.Active())
}

func TestWatch_StopsAtError(t *testing.T) {
	reader := &scriptedReader{statuses: []job.Status{job.StatusGeneratingImage, job.StatusError}}

	v, err := newTestWatcher(reader).Watch(context.Background(), "job-1", nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, job.StatusError, v.Status)
}

func TestWatch_SurfacesReadFailure(t *testing.T) {
	boom := errors.New("404 job not found")
	reader := &scriptedReader{err: boom}

	_, err := newTestWatcher(reader).Watch(context.Background(), "job-1", nil).Wait()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, reader.callCount(), "no retry after a failed read")
}

func TestWatch_SuppressesDuplicateLoops(t *testing.T) {
	reader := &scriptedReader{
		statuses: []job.Status{job.StatusCompleted},
		block:    make(chan struct{}),
	}
	w := newTestWatcher(reader)

	h1 := w.Watch(context.Background(), "job-1", nil)
	h2 := w.Watch(context.Background(), "job-1", nil)
	other := w.Watch(context.Background(), "job-2", nil)

	assert.Same(t, h1, h2)
	assert.NotSame(t, h1, other)
	assert.Equal(t, 2, w.Active())

	close(reader.block)
	_, err := h1.Wait()
	require.NoError(t, err)
	_, err = other.Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, reader.callCount())

	// A finished loop can be started again.
	h3 := w.Watch(context.Background(), "job-1", nil)
	assert.NotSame(t, h1, h3)
	_, err = h3.Wait()
	require.NoError(t, err)
}

func TestHandle_Cancel(t *testing.T) {
	reader := &scriptedReader{statuses: []job.Status{job.StatusGeneratingVideo}}
	w := NewWatcher(reader, WithPolicy(Policy{Default: time.Hour}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	h := w.Watch(context.Background(), "job-1", nil)
	require.Eventually(t, func() bool { return reader.callCount() == 1 }, time.Second, time.Millisecond)

	h.Cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	v, err := h.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, job.StatusGeneratingVideo, v.Status)
	assert.Equal(t, "job-1", h.ID())
}
