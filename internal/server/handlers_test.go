package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/charactercast-api/internal/auth"
	"github.com/maauso/charactercast-api/internal/character"
	"github.com/maauso/charactercast-api/internal/generator"
	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/pipeline"
	"github.com/maauso/charactercast-api/internal/worker"
)

// mockService implements Service for testing.
type mockService struct {
	mock.Mock
}

func (m *mockService) Submit(ctx context.Context, in pipeline.SubmitInput) (*job.Job, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockService) GetJob(ctx context.Context, id, owner string) (*job.Job, error) {
	args := m.Called(ctx, id, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockService) Advance(ctx context.Context, id, owner string) (*pipeline.AdvanceResult, error) {
	args := m.Called(ctx, id, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.AdvanceResult), args.Error(1)
}

func (m *mockService) RunStage(ctx context.Context, id, owner string, stage generator.Stage) (*job.Job, error) {
	args := m.Called(ctx, id, owner, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens("test-secret")
	require.NoError(t, err)
	return tokens
}

func newTestRouter(t *testing.T, svc Service) (http.Handler, *auth.Tokens) {
	t.Helper()
	tokens := newTestTokens(t)
	cfg := DefaultConfig()
	cfg.Verifier = tokens
	return NewRouter(NewHandlers(svc, testLogger()), testLogger(), cfg), tokens
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func issue(t *testing.T, tokens *auth.Tokens, owner string) string {
	t.Helper()
	token, err := tokens.Issue(owner)
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sampleJob(owner string) *job.Job {
	return job.NewWithID("job-1", owner, character.TypeAnimal,
		character.Attributes{"species": "Dog", "trait": "Playful"}, "space")
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, &mockService{})

	rec := doRequest(t, router, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth_RejectsMissingAndInvalidTokens(t *testing.T) {
	svc := &mockService{}
	router, _ := newTestRouter(t, svc)

	other, err := auth.NewTokens("other-secret")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"missing":      "",
		"wrong secret": issue(t, other, "alice"),
		"garbage":      "abc",
	} {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, "/api/jobs/job-1", token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
		})
	}
	svc.AssertNotCalled(t, "GetJob", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateJob_Success(t *testing.T) {
	svc := &mockService{}
	router, tokens := newTestRouter(t, svc)

	svc.On("Submit", mock.Anything, pipeline.SubmitInput{
		Owner:         "alice",
		CharacterType: "animal",
		Attributes:    map[string]string{"species": "Dog", "trait": "Playful"},
		Topic:         "space",
	}).Return(sampleJob("alice"), nil)

	rec := doRequest(t, router, http.MethodPost, "/api/jobs", issue(t, tokens, "alice"), CreateJobRequest{
		CharacterType: "animal",
		Topic:         "space",
		Attributes:    map[string]string{"species": "Dog", "trait": "Playful"},
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp CreateJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, "pending", resp.Status)
	svc.AssertExpectations(t)
}

func TestCreateJob_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"invalid JSON", `{not json`, "INVALID_JSON"},
		{"missing topic", `{"character_type":"animal","attributes":{"species":"Dog"}}`, "VALIDATION_ERROR"},
		{"missing attributes", `{"character_type":"animal","topic":"space"}`, "VALIDATION_ERROR"},
		{"empty attributes", `{"character_type":"animal","topic":"space","attributes":{}}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			router, tokens := newTestRouter(t, svc)

			req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewBufferString(tt.body))
			req.Header.Set("Authorization", "Bearer "+issue(t, tokens, "alice"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
			svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &pipeline.ValidationError{Field: "attributes.trait", Reason: "bad"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", job.ErrJobNotFound, http.StatusNotFound, "JOB_NOT_FOUND"},
		{"transition", job.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"generation", &generator.GenerationError{Stage: generator.StageImage, Err: errors.New("boom")}, http.StatusBadGateway, "GENERATION_FAILED"},
		{"not launched", pipeline.ErrVideoNotLaunched, http.StatusServiceUnavailable, "VIDEO_NOT_LAUNCHED"},
		{"persistence", &pipeline.PersistenceError{Op: "update job", Err: errors.New("db down")}, http.StatusInternalServerError, "PERSISTENCE_FAILED"},
		{"unknown", errors.New("weird"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			router, tokens := newTestRouter(t, svc)
			svc.On("Advance", mock.Anything, "job-1", "alice").Return(nil, tt.err)

			rec := doRequest(t, router, http.MethodPost, "/api/jobs/job-1/process", issue(t, tokens, "alice"), nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestProcessJob_Accepted(t *testing.T) {
	svc := &mockService{}
	router, tokens := newTestRouter(t, svc)

	j := sampleJob("alice")
	require.NoError(t, j.TransitionTo(job.StatusGeneratingScript))
	svc.On("Advance", mock.Anything, "job-1", "alice").Return(&pipeline.AdvanceResult{Job: j, VideoLaunched: true}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/jobs/job-1/process", issue(t, tokens, "alice"), nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp ProcessJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.VideoLaunched)
	assert.Equal(t, "generating_script", resp.Status)
}

func TestGetJob_ReturnsView(t *testing.T) {
	svc := &mockService{}
	router, tokens := newTestRouter(t, svc)
	svc.On("GetJob", mock.Anything, "job-1", "alice").Return(sampleJob("alice"), nil)

	rec := doRequest(t, router, http.MethodGet, "/api/jobs/job-1", issue(t, tokens, "alice"), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var v job.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "job-1", v.ID)
	assert.Equal(t, job.StatusPending, v.Status)
	assert.Nil(t, v.Script)
	assert.NotContains(t, rec.Body.String(), "alice")
}

func TestRunStage_UnknownStage(t *testing.T) {
	svc := &mockService{}
	router, tokens := newTestRouter(t, svc)

	rec := doRequest(t, router, http.MethodPost, "/api/jobs/job-1/stages/music", issue(t, tokens, "alice"), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_STAGE", decodeError(t, rec).Code)
}

func TestRunStage_PassesStage(t *testing.T) {
	svc := &mockService{}
	router, tokens := newTestRouter(t, svc)
	svc.On("RunStage", mock.Anything, "job-1", "alice", generator.StageScript).Return(sampleJob("alice"), nil)

	rec := doRequest(t, router, http.MethodPost, "/api/jobs/job-1/stages/script", issue(t, tokens, "alice"), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, &mockService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestStaticArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "a.png"), []byte("png"), 0o644))

	cfg := DefaultConfig()
	cfg.Verifier = newTestTokens(t)
	cfg.StaticDir = dir
	cfg.StaticPath = "/uploads"
	router := NewRouter(NewHandlers(&mockService{}, testLogger()), testLogger(), cfg)

	rec := doRequest(t, router, http.MethodGet, "/uploads/images/a.png", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
}

// fixedAdapter returns the same output for every job.
type fixedAdapter string

func (a fixedAdapter) Generate(context.Context, *job.Job) (string, error) {
	return string(a), nil
}

// inlineLauncher runs tasks on the caller's goroutine.
type inlineLauncher struct{}

func (inlineLauncher) Go(parent context.Context, _ string, task worker.Task) error {
	_ = task(context.WithoutCancel(parent))
	return nil
}

func TestEndToEnd_OwnerScopedLifecycle(t *testing.T) {
	orch := pipeline.NewOrchestrator(job.NewMemoryRepository(), pipeline.Adapters{
		Script: fixedAdapter("Woof! Space is big."),
		Image:  fixedAdapter("/uploads/images/1-animal.png"),
		Audio:  fixedAdapter("/uploads/audio/1-animal.mp3"),
		Video:  fixedAdapter("/uploads/videos/1-animal.mp4"),
	}, inlineLauncher{}, pipeline.WithLogger(testLogger()))

	router, tokens := newTestRouter(t, orch)
	alice := issue(t, tokens, "alice")
	bob := issue(t, tokens, "bob")

	rec := doRequest(t, router, http.MethodPost, "/api/jobs", alice, CreateJobRequest{
		CharacterType: "animal",
		Topic:         "space",
		Attributes:    map[string]string{"species": "dog", "trait": "playful"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CreateJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, router, http.MethodGet, "/api/jobs/"+created.JobID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/jobs/"+created.JobID+"/process", alice, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/api/jobs/"+created.JobID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v job.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, job.StatusCompleted, v.Status)
	require.NotNil(t, v.VideoURL)
	assert.Equal(t, "/uploads/videos/1-animal.mp4", *v.VideoURL)
	assert.Equal(t, "Dog", v.Attributes["species"])

	rec = doRequest(t, router, http.MethodPost, "/api/jobs/"+created.JobID+"/stages/script", alice, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateJob_InvalidAttributes(t *testing.T) {
	orch := pipeline.NewOrchestrator(job.NewMemoryRepository(), pipeline.Adapters{}, inlineLauncher{}, pipeline.WithLogger(testLogger()))
	router, tokens := newTestRouter(t, orch)

	rec := doRequest(t, router, http.MethodPost, "/api/jobs", issue(t, tokens, "alice"), CreateJobRequest{
		CharacterType: "animal",
		Topic:         "space",
		Attributes:    map[string]string{"species": "Dragon", "trait": "Playful"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Contains(t, resp.Error, "attributes.species")
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := CORSMiddleware([]string{"https://ok.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}
