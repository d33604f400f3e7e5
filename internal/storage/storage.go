// Package storage provides durable storage for generated artifacts.
// It defines the Storage interface (port) for hexagonal architecture and
// implementations for local disk and S3 storage.
package storage

import (
	"context"
	"errors"
	"io"
)

// Static errors for storage operations.
var (
	// ErrInvalidReference is returned when a reference was not produced by this storage.
	ErrInvalidReference = errors.New("storage: invalid reference")
	// ErrNotFound is returned when a referenced artifact does not exist.
	ErrNotFound = errors.New("storage: artifact not found")
)

// Storage persists generated images, audio and video and hands back a
// public reference that clients can fetch.
type Storage interface {
	// Put stores data under name and returns its public reference.
	// The name may contain a sub-directory such as "images/1700000000-baby.png".
	Put(ctx context.Context, name string, data io.Reader) (ref string, err error)

	// Exists reports whether the referenced artifact is stored.
	Exists(ctx context.Context, ref string) (bool, error)

	// Open returns a reader for the referenced artifact.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// ReadAll opens ref and returns its full contents.
func ReadAll(ctx context.Context, s Storage, ref string) ([]byte, error) {
	rc, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
