package policy

// Policy is the common surface of the daemon's protection policies
type Policy interface {
	Enabled() bool
	Name() string
}

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"   // Normal operation
	CircuitStateOpen     CircuitState = "open"     // Failing, rejecting calls
	CircuitStateHalfOpen CircuitState = "halfopen" // Probing whether the target recovered
)

var (
	_ Policy = (*CircuitBreaker)(nil)
	_ Policy = (*RateLimiter)(nil)
)
