package form

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoSim-25-26J-441/loadcurve/internal/arrival"
	"github.com/GoSim-25-26J-441/loadcurve/internal/curve"
	"github.com/GoSim-25-26J-441/loadcurve/internal/metrics"
	"github.com/GoSim-25-26J-441/loadcurve/internal/workload"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

var (
	// ErrRemoved reports an operation on a removed entry
	ErrRemoved = errors.New("workload entry removed")
	// ErrAlreadyInitialized reports a second Init
	ErrAlreadyInitialized = errors.New("workload entry already initialized")
)

// Defaults are the initial form values of a new entry
type Defaults struct {
	ClientsPerHost int
	ArrivalPattern string
	// MaxRate is the tick ceiling; 0 leaves authored rates untouched
	MaxRate float64
	// Curve is used when an initial form names no interpolation
	Curve models.CurveKind
}

// DefaultDefaults returns the values a freshly added workload starts with
func DefaultDefaults() Defaults {
	return Defaults{ClientsPerHost: 3, ArrivalPattern: arrival.Constant, Curve: models.CurveLinear}
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithBuilder sets the configuration builder (and with it the arrival patterns)
func WithBuilder(b *workload.Builder) Option {
	return func(c *Controller) { c.builder = b }
}

// WithMetrics records rebuilds and emissions in m
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithListener adds a listener
func WithListener(l Listener) Option {
	return func(c *Controller) { c.listeners = append(c.listeners, l) }
}

// WithDefaults sets the initial form values
func WithDefaults(d Defaults) Option {
	return func(c *Controller) { c.defaults = d }
}

// Controller drives one workload entry. It is not safe for concurrent use:
// every event must complete before the next one is delivered.
type Controller struct {
	id        string
	state     State
	timing    Timing
	model     *curve.Model
	initial   models.CurveForm
	params    workload.Params
	defaults  Defaults
	builder   *workload.Builder
	last      *models.WorkloadConfiguration
	err       error
	listeners []Listener
	metrics   *metrics.Collector
	log       *slog.Logger
}

// New creates an uninitialized controller
func New(id string, opts ...Option) *Controller {
	c := &Controller{
		id:       id,
		state:    StateUninitialized,
		defaults: DefaultDefaults(),
		err:      curve.ErrUninitializedCurve,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.builder == nil {
		c.builder = workload.NewBuilder(nil)
	}
	if c.log == nil {
		c.log = logger.Default
	}
	c.log = c.log.With("workload_id", id)
	c.params = workload.Params{
		ClientsPerHost: c.defaults.ClientsPerHost,
		ArrivalPattern: c.defaults.ArrivalPattern,
	}
	return c
}

// Init supplies the curve and the shared timing, takes the initial snapshot
// and emits the first configuration.
func (c *Controller) Init(form models.CurveForm, timing Timing) error {
	switch c.state {
	case StateRemoved:
		return ErrRemoved
	case StateUninitialized:
	default:
		return ErrAlreadyInitialized
	}
	if timing == nil {
		return fmt.Errorf("%w: timing is required", curve.ErrUninitializedCurve)
	}

	if form.Curve == "" {
		form.Curve = c.defaults.Curve
	}
	model := curve.NewModel(form)
	_ = model.SetMaxRate(c.defaults.MaxRate)
	if err := model.SetTiming(timing.Duration(), timing.Interval()); err != nil {
		c.err = err
		return fmt.Errorf("init workload %s: %w", c.id, err)
	}

	c.model = model
	c.timing = timing
	c.initial = model.Snapshot()
	c.state = StateReady
	c.log.Debug("workload initialized", "ticks", len(c.initial.Ticks))
	return c.rebuild()
}

// Edit applies fn and rebuilds once
func (c *Controller) Edit(fn func(d Draft)) error {
	switch c.state {
	case StateRemoved:
		return ErrRemoved
	case StateUninitialized:
		return curve.ErrUninitializedCurve
	}
	c.state = StateEditing
	fn(Draft{c: c})
	return c.rebuild()
}

// SetService selects the target service; nil means none
func (c *Controller) SetService(s *models.Service) error {
	return c.Edit(func(d Draft) { d.SetService(s) })
}

// SetClientsPerHost applies the free-text clients field
func (c *Controller) SetClientsPerHost(raw string) error {
	return c.Edit(func(d Draft) { d.SetClientsPerHost(raw) })
}

// SetArrivalPattern sets the arrival pattern tag
func (c *Controller) SetArrivalPattern(tag string) error {
	return c.Edit(func(d Draft) { d.SetArrivalPattern(tag) })
}

// SetPoints replaces the curve's control points
func (c *Controller) SetPoints(points []models.Point) error {
	return c.Edit(func(d Draft) { d.SetPoints(points) })
}

// SetCurve changes the interpolation kind
func (c *Controller) SetCurve(kind models.CurveKind) error {
	return c.Edit(func(d Draft) { d.SetCurve(kind) })
}

// SetMaxRate applies the free-text max rate field
func (c *Controller) SetMaxRate(raw string) error {
	return c.Edit(func(d Draft) { d.SetMaxRate(raw) })
}

// Refresh recomputes after the shared duration or interval changed
func (c *Controller) Refresh() error {
	return c.Edit(func(Draft) {})
}

// Reset restores the curve to the initial snapshot. Reset counts as an edit:
// the restored configuration is emitted so the aggregate never keeps one
// derived from discarded edits.
func (c *Controller) Reset() error {
	switch c.state {
	case StateRemoved:
		return ErrRemoved
	case StateUninitialized:
		return curve.ErrUninitializedCurve
	}
	c.state = StateEditing
	_ = c.model.Restore(c.initial)
	c.log.Debug("workload reset to initial curve")
	return c.rebuild()
}

// Remove makes the entry inert and sends the removal signal once
func (c *Controller) Remove() error {
	if c.state == StateRemoved {
		return ErrRemoved
	}
	c.state = StateRemoved
	c.last = nil
	c.metrics.Removed()
	c.log.Info("workload removed")
	for _, l := range c.listeners {
		l.WorkloadRemoved(c.id)
	}
	return nil
}

// rebuild recomputes ticks if the shared timing moved, builds the
// configuration and emits it. Nothing is emitted while an error is active.
func (c *Controller) rebuild() error {
	c.metrics.Rebuilt()

	if d, i := c.model.Timing(); d != c.timing.Duration() || i != c.timing.Interval() {
		_ = c.model.SetTiming(c.timing.Duration(), c.timing.Interval())
	}

	cfg, err := c.builder.Build(c.model, c.params)
	if err != nil {
		c.err = err
		c.metrics.Failed(err)
		c.log.Warn("workload rebuild failed", "error", err)
		return err
	}

	c.err = nil
	c.state = StateReady
	c.last = &cfg
	c.metrics.Emitted(len(cfg.Ticks))
	c.log.Debug("workload configuration emitted",
		"service", cfg.Service,
		"ticks", len(cfg.Ticks),
		"clients_per_host", cfg.ClientsPerHost,
		"arrival_pattern", cfg.ArrivalPattern)
	for _, l := range c.listeners {
		l.WorkloadSubmitted(c.id, cfg.Clone())
	}
	return nil
}

// AddListener registers l for future signals
func (c *Controller) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

// ID returns the entry ID
func (c *Controller) ID() string { return c.id }

// State returns the lifecycle state
func (c *Controller) State() State { return c.state }

// Err returns the active error, nil when the last rebuild succeeded
func (c *Controller) Err() error {
	if c.state == StateRemoved {
		return nil
	}
	return c.err
}

// Configuration returns a copy of the last emitted configuration
func (c *Controller) Configuration() (models.WorkloadConfiguration, bool) {
	if c.last == nil || c.err != nil {
		return models.WorkloadConfiguration{}, false
	}
	return c.last.Clone(), true
}

// Form returns a copy of the live curve
func (c *Controller) Form() models.CurveForm {
	if c.model == nil {
		return models.CurveForm{}
	}
	return c.model.Snapshot()
}

// InitialForm returns a copy of the initial snapshot
func (c *Controller) InitialForm() models.CurveForm {
	return c.initial.Clone()
}

// Params returns a copy of the current parameters
func (c *Controller) Params() workload.Params {
	p := c.params
	if p.Service != nil {
		svc := *p.Service
		p.Service = &svc
	}
	return p
}

// MaxRate returns the active tick ceiling, 0 when disabled
func (c *Controller) MaxRate() float64 {
	if c.model == nil {
		return c.defaults.MaxRate
	}
	return c.model.MaxRate()
}
