// Package server provides the HTTP server for the CharacterCast API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// CreateJobRequest is the HTTP request body for submitting a new job.
type CreateJobRequest struct {
	// CharacterType is one of baby, animal or historical-figure.
	CharacterType string `json:"character_type" validate:"required"`
	// Topic is what the character talks about.
	Topic string `json:"topic" validate:"required,max=500"`
	// Attributes are the persona attributes required by the character type.
	Attributes map[string]string `json:"attributes" validate:"required,min=1"`
}

// CreateJobResponse is the HTTP response after submitting a job.
type CreateJobResponse struct {
	// JobID is the unique identifier for the created job.
	JobID string `json:"job_id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// ProcessJobResponse acknowledges a process request. The video stage keeps
// running after the response is written.
type ProcessJobResponse struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	VideoLaunched bool   `json:"video_launched"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
