package arrival

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownArrivalPattern reports a tag outside the registered set
var ErrUnknownArrivalPattern = errors.New("unknown arrival pattern")

const (
	Constant    = "Constant"
	Exponential = "Exponential"
)

// Timing describes how the engine spaces a client's requests for a pattern
type Timing string

const (
	// Deterministic spaces requests evenly at the tick rate
	Deterministic Timing = "deterministic"
	// Memoryless draws exponential inter-arrival gaps with the tick rate as mean rate
	Memoryless Timing = "memoryless"
)

// Policy is the downstream generation policy attached to a pattern tag
type Policy struct {
	Tag         string `json:"tag" yaml:"tag"`
	Timing      Timing `json:"timing" yaml:"timing"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Selector holds the recognized arrival-pattern tags
type Selector struct {
	policies map[string]Policy
}

// NewSelector returns a selector with the built-in patterns registered
func NewSelector() *Selector {
	s := &Selector{policies: make(map[string]Policy)}
	s.policies[Constant] = Policy{Tag: Constant, Timing: Deterministic, Description: "fixed-rate requests"}
	s.policies[Exponential] = Policy{Tag: Exponential, Timing: Memoryless, Description: "exponentially distributed inter-arrival gaps"}
	return s
}

// Register adds or replaces a pattern
func (s *Selector) Register(p Policy) error {
	if p.Tag == "" {
		return fmt.Errorf("arrival pattern tag cannot be empty")
	}
	switch p.Timing {
	case Deterministic, Memoryless:
	default:
		return fmt.Errorf("arrival pattern %s: invalid timing %q", p.Tag, string(p.Timing))
	}
	s.policies[p.Tag] = p
	return nil
}

// Validate confirms tag is registered. The empty tag means "unset" and is accepted.
func (s *Selector) Validate(tag string) error {
	if tag == "" {
		return nil
	}
	if _, ok := s.policies[tag]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownArrivalPattern, tag)
	}
	return nil
}

// Lookup returns the policy registered for tag
func (s *Selector) Lookup(tag string) (Policy, error) {
	p, ok := s.policies[tag]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownArrivalPattern, tag)
	}
	return p, nil
}

// Policies lists registered patterns sorted by tag
func (s *Selector) Policies() []Policy {
	out := make([]Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}
