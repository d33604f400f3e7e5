package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found for the given owner.
// A job owned by someone else is reported the same way.
var ErrJobNotFound = errors.New("job: not found")

// ErrDuplicateJob is returned when a job with the same ID already exists.
var ErrDuplicateJob = errors.New("job: duplicate id")

// Repository defines the interface for job persistence.
// It acts as a port in the hexagonal architecture pattern.
// Every read and write is scoped by both id and owner.
type Repository interface {
	// Create persists a new job and returns its id.
	// Returns ErrDuplicateJob if the id is already taken.
	Create(ctx context.Context, job *Job) (string, error)

	// Get retrieves a job owned by owner.
	// Returns ErrJobNotFound if the job does not exist or belongs to someone else.
	Get(ctx context.Context, id, owner string) (*Job, error)

	// Update applies a partial patch to a job owned by owner and returns the
	// stored result. Returns ErrJobNotFound on id or owner mismatch and
	// ErrInvalidTransition if the status change is not allowed.
	Update(ctx context.Context, id, owner string, u Update) (*Job, error)
}
