package policy

import (
	"sync"
	"time"
)

// CircuitBreaker stops calls to a target after repeated failures and lets a
// probe through once the cooldown has passed. Circuits are kept per key.
type CircuitBreaker struct {
	// failureThreshold is the number of consecutive failures before opening the circuit
	failureThreshold int
	// successThreshold is the number of successes needed in half-open state to close
	successThreshold int
	// cooldown is how long the circuit stays open before transitioning to half-open
	cooldown time.Duration
	circuits map[string]*circuitState
	mu       sync.Mutex
}

type circuitState struct {
	state           CircuitState
	failureCount    int
	successCount    int
	lastStateChange time.Time
}

// NewCircuitBreaker creates a breaker; a non-positive failure threshold disables it
func NewCircuitBreaker(failureThreshold, successThreshold int, cooldown time.Duration) *CircuitBreaker {
	if successThreshold <= 0 {
		successThreshold = 1
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		circuits:         make(map[string]*circuitState),
	}
}

func (b *CircuitBreaker) Enabled() bool {
	return b != nil && b.failureThreshold > 0
}

func (b *CircuitBreaker) Name() string {
	return "circuit_breaker"
}

// circuit returns the state for key; the caller holds the lock
func (b *CircuitBreaker) circuit(key string, now time.Time) *circuitState {
	c, ok := b.circuits[key]
	if !ok {
		c = &circuitState{state: CircuitStateClosed, lastStateChange: now}
		b.circuits[key] = c
	}
	if c.state == CircuitStateOpen && now.Sub(c.lastStateChange) >= b.cooldown {
		c.state = CircuitStateHalfOpen
		c.successCount = 0
		c.lastStateChange = now
	}
	return c
}

// Allow reports whether a call to key may proceed
func (b *CircuitBreaker) Allow(key string, now time.Time) bool {
	if !b.Enabled() {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.circuit(key, now).state != CircuitStateOpen
}

// RecordSuccess closes a half-open circuit once enough probes succeeded
func (b *CircuitBreaker) RecordSuccess(key string, now time.Time) {
	if !b.Enabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(key, now)
	switch c.state {
	case CircuitStateHalfOpen:
		c.successCount++
		if c.successCount >= b.successThreshold {
			c.state = CircuitStateClosed
			c.failureCount = 0
			c.lastStateChange = now
		}
	case CircuitStateClosed:
		c.failureCount = 0
	}
}

// RecordFailure opens the circuit at the threshold, or immediately when half-open
func (b *CircuitBreaker) RecordFailure(key string, now time.Time) {
	if !b.Enabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(key, now)
	c.failureCount++
	switch c.state {
	case CircuitStateHalfOpen:
		c.state = CircuitStateOpen
		c.successCount = 0
		c.lastStateChange = now
	case CircuitStateClosed:
		if c.failureCount >= b.failureThreshold {
			c.state = CircuitStateOpen
			c.lastStateChange = now
		}
	}
}

// State returns the circuit state of key at now
func (b *CircuitBreaker) State(key string, now time.Time) CircuitState {
	if !b.Enabled() {
		return CircuitStateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.circuit(key, now).state
}
