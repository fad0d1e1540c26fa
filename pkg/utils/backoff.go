package utils

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy yields the wait before a retry
type BackoffStrategy interface {
	// NextDelay returns the delay for the given attempt number (0-indexed)
	NextDelay(attempt int) time.Duration
}

// ConstantBackoff waits the same delay before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns the constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	return cb.Delay
}

// ExponentialBackoff doubles (or multiplies) the delay on each attempt up to MaxDelay
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	Jitter     bool
}

// NewExponentialBackoff creates an exponential strategy; a non-positive multiplier means 2
func NewExponentialBackoff(baseDelay, maxDelay time.Duration, multiplier float64, jitter bool) *ExponentialBackoff {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return &ExponentialBackoff{
		BaseDelay:  baseDelay,
		Multiplier: multiplier,
		MaxDelay:   maxDelay,
		Jitter:     jitter,
	}
}

// NextDelay returns the exponentially increasing delay
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}
	if eb.Jitter {
		// between 0.5*delay and 1.5*delay
		delay *= 0.5 + rand.Float64()
	}
	return time.Duration(delay)
}

// NewBackoff builds a strategy by name ("constant" or "exponential").
// Unknown names fall back to exponential with jitter; a zero max means 30s.
func NewBackoff(kind string, baseDelay, maxDelay time.Duration) BackoffStrategy {
	if maxDelay == 0 {
		maxDelay = 30 * time.Second
	}
	switch kind {
	case "constant":
		return &ConstantBackoff{Delay: baseDelay}
	case "exponential":
		return NewExponentialBackoff(baseDelay, maxDelay, 2.0, false)
	default:
		return NewExponentialBackoff(baseDelay, maxDelay, 2.0, true)
	}
}
