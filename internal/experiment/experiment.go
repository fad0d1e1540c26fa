package experiment

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/GoSim-25-26J-441/loadcurve/internal/curve"
	"github.com/GoSim-25-26J-441/loadcurve/internal/form"
	"github.com/GoSim-25-26J-441/loadcurve/internal/metrics"
	"github.com/GoSim-25-26J-441/loadcurve/internal/workload"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/utils"
)

var (
	// ErrWorkloadNotFound reports an unknown workload ID
	ErrWorkloadNotFound = errors.New("workload not found")
	// ErrNoWorkloads reports an experiment submitted without workloads
	ErrNoWorkloads = errors.New("experiment has no workloads")
)

type entry struct {
	ctrl *form.Controller
	cfg  *models.WorkloadConfiguration
}

// Option configures an Experiment
type Option func(*Experiment)

// WithBuilder sets the builder handed to every workload controller
func WithBuilder(b *workload.Builder) Option {
	return func(e *Experiment) { e.builder = b }
}

// WithDefaults sets the initial form values of added workloads
func WithDefaults(d form.Defaults) Option {
	return func(e *Experiment) { e.defaults = d }
}

// WithMetrics records workload activity in m
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Experiment) { e.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.log = l }
}

// Experiment owns the shared timing, the service catalog and the workload
// entries, and merges their emitted configurations. Like the controllers it
// drives, it is single-threaded.
type Experiment struct {
	id       string
	duration utils.Time
	interval utils.Time
	services []models.Service
	order    []string
	entries  map[string]*entry
	builder  *workload.Builder
	defaults form.Defaults
	metrics  *metrics.Collector
	log      *slog.Logger
}

// New creates an experiment with the given timing and read-only service catalog
func New(id string, duration, interval utils.Time, services []models.Service, opts ...Option) (*Experiment, error) {
	if err := validateTiming(duration, interval); err != nil {
		return nil, err
	}
	e := &Experiment{
		id:       id,
		duration: duration,
		interval: interval,
		services: slices.Clone(services),
		entries:  make(map[string]*entry),
		defaults: form.DefaultDefaults(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.builder == nil {
		e.builder = workload.NewBuilder(nil)
	}
	if e.log == nil {
		e.log = logger.Default
	}
	e.log = e.log.With("experiment_id", id)
	return e, nil
}

func validateTiming(duration, interval utils.Time) error {
	if err := duration.Validate(); err != nil {
		return fmt.Errorf("%w: duration: %v", curve.ErrInvalidParameter, err)
	}
	if err := interval.Validate(); err != nil {
		return fmt.Errorf("%w: interval: %v", curve.ErrInvalidParameter, err)
	}
	return curve.ValidateTiming(duration.Seconds(), interval.Seconds())
}

// ID returns the experiment ID
func (e *Experiment) ID() string { return e.id }

// Duration returns the shared duration in seconds
func (e *Experiment) Duration() float64 { return e.duration.Seconds() }

// Interval returns the shared interval in seconds
func (e *Experiment) Interval() float64 { return e.interval.Seconds() }

// Timing returns the unit-tagged duration and interval
func (e *Experiment) Timing() (duration, interval utils.Time) {
	return e.duration, e.interval
}

// SetTiming changes duration and interval and refreshes every workload.
// A workload that fails to refresh keeps its error; the others are unaffected.
func (e *Experiment) SetTiming(duration, interval utils.Time) error {
	if err := validateTiming(duration, interval); err != nil {
		return err
	}
	e.duration = duration
	e.interval = interval
	for _, id := range e.order {
		if err := e.entries[id].ctrl.Refresh(); err != nil {
			e.log.Warn("workload refresh failed", "workload_id", id, "error", err)
		}
	}
	return nil
}

// Services returns a copy of the catalog
func (e *Experiment) Services() []models.Service {
	return slices.Clone(e.services)
}

// Service looks up a catalog entry by name
func (e *Experiment) Service(name string) (models.Service, bool) {
	for _, s := range e.services {
		if s.Name == name {
			return s, true
		}
	}
	return models.Service{}, false
}

// AddWorkload creates and initializes a workload entry for cf
func (e *Experiment) AddWorkload(cf models.CurveForm) (*form.Controller, error) {
	id := utils.GenerateWorkloadID()
	ctrl := form.New(id,
		form.WithListener(e),
		form.WithBuilder(e.builder),
		form.WithDefaults(e.defaults),
		form.WithMetrics(e.metrics),
		form.WithLogger(e.log),
	)
	e.entries[id] = &entry{ctrl: ctrl}
	e.order = append(e.order, id)

	if err := ctrl.Init(cf, e); err != nil {
		e.drop(id)
		return nil, err
	}
	e.log.Info("workload added", "workload_id", id)
	return ctrl, nil
}

// Workload returns the controller of a workload entry
func (e *Experiment) Workload(id string) (*form.Controller, error) {
	ent, ok := e.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkloadNotFound, id)
	}
	return ent.ctrl, nil
}

// Workloads returns the controllers in insertion order
func (e *Experiment) Workloads() []*form.Controller {
	out := make([]*form.Controller, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.entries[id].ctrl)
	}
	return out
}

// RemoveWorkload removes an entry; the controller's removal signal drops it
func (e *Experiment) RemoveWorkload(id string) error {
	ctrl, err := e.Workload(id)
	if err != nil {
		return err
	}
	return ctrl.Remove()
}

// WorkloadSubmitted merges an emitted configuration
func (e *Experiment) WorkloadSubmitted(id string, cfg models.WorkloadConfiguration) {
	ent, ok := e.entries[id]
	if !ok {
		return
	}
	ent.cfg = &cfg
}

// WorkloadRemoved drops the entry from the aggregate
func (e *Experiment) WorkloadRemoved(id string) {
	e.drop(id)
}

func (e *Experiment) drop(id string) {
	delete(e.entries, id)
	e.order = slices.DeleteFunc(e.order, func(s string) bool { return s == id })
}

// Configuration returns the aggregate of the latest emitted configurations.
// Entries that never emitted or have an active error are left out.
func (e *Experiment) Configuration() models.ExperimentConfiguration {
	out := models.ExperimentConfiguration{
		Duration:  utils.FormatSeconds(e.Duration()),
		Interval:  utils.FormatSeconds(e.Interval()),
		Workloads: make([]models.WorkloadConfiguration, 0, len(e.order)),
	}
	for _, id := range e.order {
		ent := e.entries[id]
		if ent.cfg == nil || ent.ctrl.Err() != nil {
			continue
		}
		out.Workloads = append(out.Workloads, ent.cfg.Clone())
	}
	return out
}

// Validate reports every workload that is not ready for submission
func (e *Experiment) Validate() error {
	if len(e.order) == 0 {
		return ErrNoWorkloads
	}
	var errs []error
	for _, id := range e.order {
		ent := e.entries[id]
		if err := ent.ctrl.Err(); err != nil {
			errs = append(errs, fmt.Errorf("workload %s: %w", id, err))
			continue
		}
		if ent.cfg == nil {
			errs = append(errs, fmt.Errorf("workload %s: %w", id, curve.ErrUninitializedCurve))
			continue
		}
		if err := workload.ValidateForSubmission(*ent.cfg, e.Duration(), e.Interval()); err != nil {
			errs = append(errs, fmt.Errorf("workload %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
