package id

import (
	"testing"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	if !Valid(id) {
		t.Errorf("expected a UUID, got %s", id)
	}

	// Check uniqueness
	id2 := Generate()
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	if Valid("job-123") {
		t.Error("expected job-123 to be rejected")
	}
	if !Valid("1b4e28ba-2fa1-11d2-883f-0016d3cca427") {
		t.Error("expected canonical UUID to be accepted")
	}
}
