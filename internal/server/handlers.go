package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/charactercast-api/internal/auth"
	"github.com/maauso/charactercast-api/internal/generator"
	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/pipeline"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Service is the job pipeline as seen by the HTTP layer.
type Service interface {
	Submit(ctx context.Context, in pipeline.SubmitInput) (*job.Job, error)
	GetJob(ctx context.Context, id, owner string) (*job.Job, error)
	Advance(ctx context.Context, id, owner string) (*pipeline.AdvanceResult, error)
	RunStage(ctx context.Context, id, owner string, stage generator.Stage) (*job.Job, error)
}

// Compile-time check that the orchestrator implements Service.
var _ Service = (*pipeline.Orchestrator)(nil)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   Service
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateJob handles POST /api/jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.OwnerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing owner", "UNAUTHORIZED")
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	created, err := h.service.Submit(r.Context(), pipeline.SubmitInput{
		Owner:         owner,
		CharacterType: req.CharacterType,
		Attributes:    req.Attributes,
		Topic:         req.Topic,
	})
	if err != nil {
		h.writeServiceError(w, "", err)
		return
	}

	h.logger.Info("job created",
		slog.String("job_id", created.ID),
		slog.String("character_type", string(created.CharacterType)),
	)

	writeJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:  created.ID,
		Status: string(created.GetStatus()),
	})
}

// ProcessJob handles POST /api/jobs/{id}/process requests. It returns once
// the video stage has been launched.
func (h *Handlers) ProcessJob(w http.ResponseWriter, r *http.Request) {
	owner, jobID, ok := h.target(w, r)
	if !ok {
		return
	}

	res, err := h.service.Advance(r.Context(), jobID, owner)
	if err != nil {
		h.writeServiceError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ProcessJobResponse{
		JobID:         res.Job.ID,
		Status:        string(res.Job.GetStatus()),
		VideoLaunched: res.VideoLaunched,
	})
}

// GetJob handles GET /api/jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	owner, jobID, ok := h.target(w, r)
	if !ok {
		return
	}

	found, err := h.service.GetJob(r.Context(), jobID, owner)
	if err != nil {
		h.writeServiceError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, found.View())
}

// RunStage handles POST /api/jobs/{id}/stages/{stage} requests.
func (h *Handlers) RunStage(w http.ResponseWriter, r *http.Request) {
	owner, jobID, ok := h.target(w, r)
	if !ok {
		return
	}

	stage, err := generator.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_STAGE")
		return
	}

	updated, err := h.service.RunStage(r.Context(), jobID, owner, stage)
	if err != nil {
		h.writeServiceError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, updated.View())
}

// target extracts the owner and job id, writing the error response itself
// when either is missing.
func (h *Handlers) target(w http.ResponseWriter, r *http.Request) (owner, jobID string, ok bool) {
	owner, ok = auth.OwnerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing owner", "UNAUTHORIZED")
		return "", "", false
	}
	jobID = chi.URLParam(r, "id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return "", "", false
	}
	return owner, jobID, true
}

// writeServiceError maps pipeline errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, jobID string, err error) {
	var (
		validationErr  *pipeline.ValidationError
		generationErr  *generator.GenerationError
		persistenceErr *pipeline.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error(), "VALIDATION_ERROR")
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error(), "INVALID_TRANSITION")
	case errors.Is(err, generator.ErrUnknownStage):
		writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_STAGE")
	case errors.As(err, &generationErr):
		h.logger.Warn("generation failed",
			slog.String("job_id", jobID),
			slog.String("stage", string(generationErr.Stage)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, generationErr.Error(), "GENERATION_FAILED")
	case errors.Is(err, pipeline.ErrVideoNotLaunched):
		h.logger.Error("video stage not launched",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, "video stage could not be started", "VIDEO_NOT_LAUNCHED")
	case errors.As(err, &persistenceErr):
		h.logger.Error("job store failure",
			slog.String("job_id", jobID),
			slog.String("op", persistenceErr.Op),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to persist job", "PERSISTENCE_FAILED")
	default:
		h.logger.Error("request failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
