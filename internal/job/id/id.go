// Package id provides unique identifier generation for jobs.
package id

import "github.com/google/uuid"

// Generate creates a new unique job ID.
// Format: a random (version 4) UUID in its canonical string form.
// Example: 1b4e28ba-2fa1-11d2-883f-0016d3cca427
func Generate() string {
	return uuid.NewString()
}

// Valid reports whether s looks like an id produced by Generate.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
