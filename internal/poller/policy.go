// Package poller follows a job from the client side until it reaches a
// terminal status. The wait between reads depends on the job's current stage
// and grows with every attempt.
package poller

import (
	"math"
	"time"

	"github.com/maauso/charactercast-api/internal/job"
)

// Policy computes the wait before the next status read.
type Policy struct {
	// Base is the starting interval per status.
	Base map[job.Status]time.Duration
	// Default applies to statuses missing from Base.
	Default time.Duration
	// Multiplier grows the interval once per attempt.
	Multiplier float64
	// MaxDelay caps every wait.
	MaxDelay time.Duration
}

// DefaultPolicy polls early stages every few seconds and video generation
// every ten, growing by half per attempt up to thirty seconds.
func DefaultPolicy() Policy {
	return Policy{
		Base: map[job.Status]time.Duration{
			job.StatusPending:          2 * time.Second,
			job.StatusGeneratingScript: 2 * time.Second,
			job.StatusGeneratingImage:  3 * time.Second,
			job.StatusGeneratingAudio:  3 * time.Second,
			job.StatusGeneratingVideo:  10 * time.Second,
		},
		Default:    5 * time.Second,
		Multiplier: 1.5,
		MaxDelay:   30 * time.Second,
	}
}

// Delay returns base(status) * Multiplier^attempt, capped at MaxDelay.
// attempt starts at zero.
func (p Policy) Delay(status job.Status, attempt int) time.Duration {
	base, ok := p.Base[status]
	if !ok {
		base = p.Default
	}
	if attempt < 0 {
		attempt = 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(base) * math.Pow(mult, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}
