package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/charactercast-api/internal/hedra"
	"github.com/maauso/charactercast-api/internal/llm"
	"github.com/maauso/charactercast-api/internal/openai"
	"github.com/maauso/charactercast-api/internal/storage"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) GenerateImage(ctx context.Context, prompt string) (*openai.Image, error) {
	args := m.Called(ctx, prompt)
	img, _ := args.Get(0).(*openai.Image)
	return img, args.Error(1)
}

type mockSynth struct {
	mock.Mock
}

func (m *mockSynth) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	args := m.Called(ctx, voiceID, text)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

// fakeHedra scripts the video provider. Status responses are served in
// order; once exhausted the last one repeats.
type fakeHedra struct {
	mu          sync.Mutex
	assets      int
	uploads     map[hedra.AssetType]int
	generations int
	statusCalls int
	statuses    []string
	statusErr   error
	downloadErr error
	downloads   []string
	lastRequest hedra.GenerationRequest
}

func newFakeHedra(statuses ...string) *fakeHedra {
	return &fakeHedra{uploads: make(map[hedra.AssetType]int), statuses: statuses}
}

func (f *fakeHedra) CreateAsset(_ context.Context, t hedra.AssetType, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets++
	return fmt.Sprintf("%s-asset-%d", t, f.assets), nil
}

func (f *fakeHedra) UploadAsset(_ context.Context, _ string, t hedra.AssetType, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[t]++
	return nil
}

func (f *fakeHedra) CreateGeneration(_ context.Context, req hedra.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generations++
	f.lastRequest = req
	return fmt.Sprintf("gen-%d", f.generations), nil
}

func (f *fakeHedra) Status(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if len(f.statuses) == 0 {
		return []byte(`{"status":"processing"}`), nil
	}
	i := min(f.statusCalls, len(f.statuses)) - 1
	return []byte(f.statuses[i]), nil
}

func (f *fakeHedra) OutputURL(id string) string {
	return "https://api.hedra.test/generations/" + id + "/output"
}

func (f *fakeHedra) Download(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, url)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return []byte("mp4:" + url), nil
}

func newTestStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir(), storage.DefaultPublicPath)
	require.NoError(t, err)
	return s
}

func putArtifact(t *testing.T, s storage.Storage, name, content string) string {
	t.Helper()
	ref, err := s.Put(context.Background(), name, strings.NewReader(content))
	require.NoError(t, err)
	return ref
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noSleep records requested waits without blocking.
type noSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *noSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}
