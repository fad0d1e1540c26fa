package models

import "slices"

// CurveKind selects how a curve is interpolated between control points
type CurveKind string

const (
	CurveLinear   CurveKind = "linear"
	CurveStep     CurveKind = "step"
	CurveMonotone CurveKind = "monotone"
)

// Valid reports whether k is a known interpolation kind
func (k CurveKind) Valid() bool {
	switch k {
	case CurveLinear, CurveStep, CurveMonotone:
		return true
	}
	return false
}

// Point is one control point: X in seconds since start, Y in requests per second
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// CurveForm holds the authored control points and the ticks derived from them
type CurveForm struct {
	Curve  CurveKind `json:"curve" yaml:"curve"`
	Points []Point   `json:"points" yaml:"points"`
	Ticks  []float64 `json:"ticks" yaml:"ticks"`
}

// Clone returns a deep copy sharing no slices with c
func (c CurveForm) Clone() CurveForm {
	return CurveForm{
		Curve:  c.Curve,
		Points: slices.Clone(c.Points),
		Ticks:  slices.Clone(c.Ticks),
	}
}

// Service is an entry of the service catalog
type Service struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// WorkloadConfiguration is the per-workload record handed to the execution engine
type WorkloadConfiguration struct {
	Service        string    `json:"service" yaml:"service"`
	Ticks          []float64 `json:"ticks" yaml:"ticks"`
	ClientsPerHost int       `json:"clients_per_host" yaml:"clients_per_host"`
	ArrivalPattern string    `json:"arrival_pattern" yaml:"arrival_pattern"`
}

// Clone returns a copy that shares no slices with w
func (w WorkloadConfiguration) Clone() WorkloadConfiguration {
	w.Ticks = slices.Clone(w.Ticks)
	return w
}

// Equal reports field-wise value equality
func (w WorkloadConfiguration) Equal(o WorkloadConfiguration) bool {
	return w.Service == o.Service &&
		w.ClientsPerHost == o.ClientsPerHost &&
		w.ArrivalPattern == o.ArrivalPattern &&
		slices.Equal(w.Ticks, o.Ticks)
}

// ExperimentConfiguration is the aggregate submitted to the engine.
// Duration and interval are rendered as "<seconds>s" strings.
type ExperimentConfiguration struct {
	Duration  string                  `json:"duration" yaml:"duration"`
	Interval  string                  `json:"interval" yaml:"interval"`
	Workloads []WorkloadConfiguration `json:"workloads" yaml:"workloads"`
}

// ExperimentMeta identifies an experiment towards the engine
type ExperimentMeta struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Creator string `json:"creator,omitempty" yaml:"creator,omitempty"`
}

// Submission is the document posted to the execution engine
type Submission struct {
	Experiment    ExperimentMeta          `json:"experiment" yaml:"experiment"`
	Configuration ExperimentConfiguration `json:"configuration" yaml:"configuration"`
}
