package channel

import (
	"math"
	"math/rand"
	"time"
)

// Policy computes the delay before a reconnect attempt.
// It carries no state beyond its inputs; attempt is 1-based for the first
// retry.
type Policy struct {
	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration
	// Multiplier grows the delay for each further attempt.
	Multiplier float64
	// MaxDelay caps the unjittered delay.
	MaxDelay time.Duration
	// MaxRetries is the number of automatic retries before giving up.
	MaxRetries int
}

// DefaultPolicy provides conservative reconnect defaults.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: time.Second,
		Multiplier:   1.5,
		MaxDelay:     30 * time.Second,
		MaxRetries:   10,
	}
}

// Base returns the unjittered backoff for the given attempt.
func (p Policy) Base(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	initial := p.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = 1.5
	}
	max := p.MaxDelay
	if max <= 0 {
		max = 30 * time.Second
	}

	wait := time.Duration(float64(initial) * math.Pow(multiplier, float64(attempt)))
	if wait > max || wait <= 0 {
		return max
	}
	return wait
}

// Delay returns the backoff for the given attempt with a uniform jitter
// factor in [0.5, 1.5) so simultaneous clients do not retry in lockstep.
func (p Policy) Delay(attempt int) time.Duration {
	factor := 0.5 + rand.Float64()
	return time.Duration(float64(p.Base(attempt)) * factor)
}
