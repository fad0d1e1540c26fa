package designd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/GoSim-25-26J-441/loadcurve/internal/arrival"
	"github.com/GoSim-25-26J-441/loadcurve/internal/curve"
	"github.com/GoSim-25-26J-441/loadcurve/internal/experiment"
	"github.com/GoSim-25-26J-441/loadcurve/internal/form"
	"github.com/GoSim-25-26J-441/loadcurve/internal/workload"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/utils"
)

// rawInput accepts a JSON string or number and keeps its text, so API
// fields go through the same permissive parsing as typed form input.
type rawInput string

func (r *rawInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = rawInput(s)
		return nil
	}
	*r = rawInput(strings.TrimSpace(string(data)))
	return nil
}

type createExperimentRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Duration string `json:"duration,omitempty"`
	Interval string `json:"interval,omitempty"`
	// YAML holds a complete experiment file; timing and workloads come from it
	YAML string `json:"yaml,omitempty"`
}

type timingRequest struct {
	Duration string `json:"duration"`
	Interval string `json:"interval"`
}

// parseTiming returns nil for fields left empty
func parseTiming(duration, interval string) (*utils.Time, *utils.Time, error) {
	var d, i *utils.Time
	if duration != "" {
		t, err := utils.ParseTime(duration)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: duration: %v", curve.ErrInvalidParameter, err)
		}
		d = &t
	}
	if interval != "" {
		t, err := utils.ParseTime(interval)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: interval: %v", curve.ErrInvalidParameter, err)
		}
		i = &t
	}
	return d, i, nil
}

// workloadRequest creates or edits a workload entry. Absent fields are left unchanged.
type workloadRequest struct {
	Service        *string           `json:"service,omitempty"`
	Curve          *models.CurveKind `json:"curve,omitempty"`
	Points         []models.Point    `json:"points,omitempty"`
	ClientsPerHost *rawInput         `json:"clients_per_host,omitempty"`
	ArrivalPattern *string           `json:"arrival_pattern,omitempty"`
	MaxRPS         *rawInput         `json:"max_rps,omitempty"`
}

func (r workloadRequest) hasParams() bool {
	return r.Service != nil || r.ClientsPerHost != nil || r.ArrivalPattern != nil || r.MaxRPS != nil
}

func (r workloadRequest) curveForm() models.CurveForm {
	cf := models.CurveForm{Points: r.Points}
	if r.Curve != nil {
		cf.Curve = *r.Curve
	}
	return cf
}

// apply edits ctrl in a single batch so it emits at most once
func (r workloadRequest) apply(exp *experiment.Experiment, ctrl *form.Controller, includeCurve bool) error {
	var svc *models.Service
	if r.Service != nil && *r.Service != "" {
		s, ok := exp.Service(*r.Service)
		if !ok {
			return fmt.Errorf("%w: %s", experiment.ErrUnknownService, *r.Service)
		}
		svc = &s
	}
	return ctrl.Edit(func(d form.Draft) {
		if r.Service != nil {
			d.SetService(svc)
		}
		if r.ClientsPerHost != nil {
			d.SetClientsPerHost(string(*r.ClientsPerHost))
		}
		if r.ArrivalPattern != nil {
			d.SetArrivalPattern(*r.ArrivalPattern)
		}
		if r.MaxRPS != nil {
			d.SetMaxRate(string(*r.MaxRPS))
		}
		if includeCurve {
			if r.Curve != nil {
				d.SetCurve(*r.Curve)
			}
			if r.Points != nil {
				d.SetPoints(r.Points)
			}
		}
	})
}

type discretizeRequest struct {
	Curve    models.CurveKind `json:"curve"`
	Points   []models.Point   `json:"points"`
	Duration string           `json:"duration"`
	Interval string           `json:"interval"`
	MaxRPS   float64          `json:"max_rps"`
}

type discretizeResponse struct {
	Ticks     []float64 `json:"ticks"`
	TickCount int       `json:"tick_count"`
}

func (r discretizeRequest) run() (discretizeResponse, error) {
	d, i, err := parseTiming(r.Duration, r.Interval)
	if err != nil {
		return discretizeResponse{}, err
	}
	if d == nil || i == nil {
		return discretizeResponse{}, fmt.Errorf("%w: duration and interval are required", curve.ErrInvalidParameter)
	}
	ticks, err := curve.Discretize(r.Curve, r.Points, d.Seconds(), i.Seconds(), curve.Options{MaxRate: r.MaxRPS})
	if err != nil {
		return discretizeResponse{}, err
	}
	return discretizeResponse{Ticks: ticks, TickCount: len(ticks)}, nil
}

// httpStatus maps domain errors to HTTP status codes
func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrExperimentNotFound), errors.Is(err, experiment.ErrWorkloadNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExperimentExists):
		return http.StatusConflict
	case errors.Is(err, form.ErrRemoved):
		return http.StatusGone
	case errors.Is(err, ErrInvalidExperimentID), errors.Is(err, curve.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, arrival.ErrUnknownArrivalPattern),
		errors.Is(err, curve.ErrUninitializedCurve),
		errors.Is(err, experiment.ErrUnknownService),
		errors.Is(err, experiment.ErrNoWorkloads),
		errors.Is(err, workload.ErrMissingService),
		errors.Is(err, workload.ErrTickCount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrEngineNotConfigured), errors.Is(err, ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrEngineRejected), errors.Is(err, ErrEngineUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
