package designd

import (
	"github.com/GoSim-25-26J-441/loadcurve/internal/curve"
	"github.com/GoSim-25-26J-441/loadcurve/internal/form"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

// ExperimentSummary is the list representation of an experiment
type ExperimentSummary struct {
	ID              string       `json:"id"`
	Name            string       `json:"name,omitempty"`
	Duration        string       `json:"duration"`
	Interval        string       `json:"interval"`
	Workloads       int          `json:"workloads"`
	CreatedAtUnixMs int64        `json:"created_at_unix_ms"`
	SubmitStatus    SubmitStatus `json:"submit_status,omitempty"`
}

// ExperimentView is the full representation of an experiment
type ExperimentView struct {
	ID                string         `json:"id"`
	Name              string         `json:"name,omitempty"`
	Creator           string         `json:"creator,omitempty"`
	Duration          string         `json:"duration"`
	Interval          string         `json:"interval"`
	DurationSeconds   float64        `json:"duration_seconds"`
	IntervalSeconds   float64        `json:"interval_seconds"`
	TickCount         int            `json:"tick_count"`
	CreatedAtUnixMs   int64          `json:"created_at_unix_ms"`
	SubmittedAtUnixMs int64          `json:"submitted_at_unix_ms,omitempty"`
	SubmitStatus      SubmitStatus   `json:"submit_status,omitempty"`
	SubmitError       string         `json:"submit_error,omitempty"`
	EngineReference   string         `json:"engine_reference,omitempty"`
	Ready             bool           `json:"ready"`
	ValidationError   string         `json:"validation_error,omitempty"`
	Workloads         []WorkloadView `json:"workloads"`
}

// WorkloadView is the representation of one workload entry
type WorkloadView struct {
	ID             string                        `json:"id"`
	State          string                        `json:"state"`
	Error          string                        `json:"error,omitempty"`
	Service        string                        `json:"service"`
	ClientsPerHost int                           `json:"clients_per_host"`
	ArrivalPattern string                        `json:"arrival_pattern"`
	MaxRPS         float64                       `json:"max_rps"`
	Curve          models.CurveKind              `json:"curve"`
	Points         []models.Point                `json:"points"`
	Ticks          []float64                     `json:"ticks"`
	Configuration  *models.WorkloadConfiguration `json:"configuration,omitempty"`
}

func newExperimentSummary(rec *ExperimentRecord) ExperimentSummary {
	d, i := rec.Experiment.Timing()
	return ExperimentSummary{
		ID:              rec.Meta.ID,
		Name:            rec.Meta.Name,
		Duration:        d.String(),
		Interval:        i.String(),
		Workloads:       len(rec.Experiment.Workloads()),
		CreatedAtUnixMs: rec.CreatedAtUnixMs,
		SubmitStatus:    rec.SubmitStatus,
	}
}

func newExperimentView(rec *ExperimentRecord) ExperimentView {
	exp := rec.Experiment
	d, i := exp.Timing()
	view := ExperimentView{
		ID:                rec.Meta.ID,
		Name:              rec.Meta.Name,
		Creator:           rec.Meta.Creator,
		Duration:          d.String(),
		Interval:          i.String(),
		DurationSeconds:   exp.Duration(),
		IntervalSeconds:   exp.Interval(),
		TickCount:         curve.TickCount(exp.Duration(), exp.Interval()),
		CreatedAtUnixMs:   rec.CreatedAtUnixMs,
		SubmittedAtUnixMs: rec.SubmittedAtUnixMs,
		SubmitStatus:      rec.SubmitStatus,
		SubmitError:       rec.SubmitError,
		EngineReference:   rec.EngineReference,
		Ready:             true,
	}
	if err := exp.Validate(); err != nil {
		view.Ready = false
		view.ValidationError = err.Error()
	}
	view.Workloads = make([]WorkloadView, 0, len(exp.Workloads()))
	for _, ctrl := range exp.Workloads() {
		view.Workloads = append(view.Workloads, newWorkloadView(ctrl))
	}
	return view
}

func newWorkloadView(ctrl *form.Controller) WorkloadView {
	cf := ctrl.Form()
	params := ctrl.Params()
	view := WorkloadView{
		ID:             ctrl.ID(),
		State:          ctrl.State().String(),
		ClientsPerHost: params.ClientsPerHost,
		ArrivalPattern: params.ArrivalPattern,
		MaxRPS:         ctrl.MaxRate(),
		Curve:          cf.Curve,
		Points:         cf.Points,
		Ticks:          cf.Ticks,
	}
	if params.Service != nil {
		view.Service = params.Service.Name
	}
	if err := ctrl.Err(); err != nil {
		view.Error = err.Error()
	}
	if cfg, ok := ctrl.Configuration(); ok {
		view.Configuration = &cfg
	}
	return view
}
