package form

import "github.com/GoSim-25-26J-441/loadcurve/pkg/models"

// Listener receives the outbound signals of a workload entry
type Listener interface {
	// WorkloadSubmitted receives every successfully rebuilt configuration
	WorkloadSubmitted(id string, cfg models.WorkloadConfiguration)
	// WorkloadRemoved is sent exactly once when the entry is removed
	WorkloadRemoved(id string)
}

// ListenerFuncs adapts plain functions to Listener; nil fields are skipped
type ListenerFuncs struct {
	Submitted func(id string, cfg models.WorkloadConfiguration)
	Removed   func(id string)
}

func (l ListenerFuncs) WorkloadSubmitted(id string, cfg models.WorkloadConfiguration) {
	if l.Submitted != nil {
		l.Submitted(id, cfg)
	}
}

func (l ListenerFuncs) WorkloadRemoved(id string) {
	if l.Removed != nil {
		l.Removed(id)
	}
}

// Timing is the shared experiment duration and interval, in seconds.
// The controller only reads it, at recomputation time.
type Timing interface {
	Duration() float64
	Interval() float64
}

// FixedTiming is a Timing with constant values
type FixedTiming struct {
	DurationSeconds float64
	IntervalSeconds float64
}

func (f FixedTiming) Duration() float64 { return f.DurationSeconds }
func (f FixedTiming) Interval() float64 { return f.IntervalSeconds }
