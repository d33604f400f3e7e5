package job

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; PostgresRepository is used when a
// database is configured.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs: make(map[string]*Job),
	}
}

// Create stores a clone of the job.
func (r *MemoryRepository) Create(_ context.Context, job *Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return "", ErrDuplicateJob
	}
	r.jobs[job.ID] = job.Clone()
	return job.ID, nil
}

// Get retrieves a job by id and owner.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) Get(_ context.Context, id, owner string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok || job.Owner != owner {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// Update applies u to the stored job under the write lock.
func (r *MemoryRepository) Update(_ context.Context, id, owner string, u Update) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Owner != owner {
		return nil, ErrJobNotFound
	}
	next := job.Clone()
	if err := next.Apply(u); err != nil {
		return nil, err
	}
	r.jobs[id] = next
	return next.Clone(), nil
}

// Len returns the number of stored jobs.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
