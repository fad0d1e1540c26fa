package designd

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/loadcurve/internal/arrival"
	"github.com/GoSim-25-26J-441/loadcurve/internal/experiment"
	"github.com/GoSim-25-26J-441/loadcurve/internal/form"
	"github.com/GoSim-25-26J-441/loadcurve/internal/metrics"
	"github.com/GoSim-25-26J-441/loadcurve/internal/workload"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/config"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/utils"
)

var (
	ErrExperimentNotFound  = errors.New("experiment not found")
	ErrExperimentExists    = errors.New("experiment already exists")
	ErrInvalidExperimentID = errors.New("experiment id cannot contain '/' or ':'")
)

// SubmitStatus tracks the last submission of an experiment to the engine
type SubmitStatus string

const (
	SubmitNone     SubmitStatus = ""
	SubmitPending  SubmitStatus = "pending"
	SubmitAccepted SubmitStatus = "submitted"
	SubmitFailed   SubmitStatus = "failed"
)

type ExperimentRecord struct {
	Experiment        *experiment.Experiment
	Meta              models.ExperimentMeta
	CreatedAtUnixMs   int64
	SubmittedAtUnixMs int64
	SubmitStatus      SubmitStatus
	SubmitError       string
	EngineReference   string
}

// StoreOption configures a DesignStore
type StoreOption func(*DesignStore)

// WithSelector sets the arrival-pattern registry shared by every experiment
func WithSelector(sel *arrival.Selector) StoreOption {
	return func(s *DesignStore) { s.selector = sel }
}

// WithTimingDefaults sets the duration and interval of experiments created without timing
func WithTimingDefaults(duration, interval utils.Time) StoreOption {
	return func(s *DesignStore) {
		s.duration = duration
		s.interval = interval
	}
}

// WithFormDefaults sets the initial values of new workload entries
func WithFormDefaults(d form.Defaults) StoreOption {
	return func(s *DesignStore) { s.defaults = d }
}

// WithStoreMetrics records workload activity in m
func WithStoreMetrics(m *metrics.Collector) StoreOption {
	return func(s *DesignStore) { s.metrics = m }
}

// WithStoreLogger sets the logger
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *DesignStore) { s.log = l }
}

// DesignStore holds the experiments of the daemon. The experiment core is
// single-threaded, so every access to a record goes through the store mutex.
type DesignStore struct {
	mu          sync.Mutex
	experiments map[string]*ExperimentRecord
	order       []string

	services []models.Service
	selector *arrival.Selector
	builder  *workload.Builder
	duration utils.Time
	interval utils.Time
	defaults form.Defaults
	metrics  *metrics.Collector
	log      *slog.Logger
}

// NewDesignStore creates an empty store over a read-only service catalog
func NewDesignStore(services []models.Service, opts ...StoreOption) *DesignStore {
	s := &DesignStore{
		experiments: make(map[string]*ExperimentRecord),
		services:    slices.Clone(services),
		duration:    utils.NewTime(60, utils.Seconds),
		interval:    utils.NewTime(1, utils.Seconds),
		defaults:    form.DefaultDefaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.selector == nil {
		s.selector = arrival.NewSelector()
	}
	if s.log == nil {
		s.log = logger.Default
	}
	s.builder = workload.NewBuilder(s.selector)
	return s
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func (s *DesignStore) experimentOptions() []experiment.Option {
	return []experiment.Option{
		experiment.WithBuilder(s.builder),
		experiment.WithDefaults(s.defaults),
		experiment.WithMetrics(s.metrics),
		experiment.WithLogger(s.log),
	}
}

// claimID resolves the experiment ID; the caller holds the lock
func (s *DesignStore) claimID(id string) (string, error) {
	if id == "" {
		id = utils.GenerateExperimentID()
	}
	if strings.ContainsAny(id, "/:") {
		return "", fmt.Errorf("%w: %s", ErrInvalidExperimentID, id)
	}
	if _, exists := s.experiments[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrExperimentExists, id)
	}
	return id, nil
}

func (s *DesignStore) insert(meta models.ExperimentMeta, exp *experiment.Experiment) ExperimentView {
	rec := &ExperimentRecord{
		Experiment:      exp,
		Meta:            meta,
		CreatedAtUnixMs: nowUnixMs(),
	}
	s.experiments[meta.ID] = rec
	s.order = append(s.order, meta.ID)
	return newExperimentView(rec)
}

// Create adds an empty experiment. Nil timing falls back to the store defaults.
func (s *DesignStore) Create(meta models.ExperimentMeta, duration, interval *utils.Time) (ExperimentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.claimID(meta.ID)
	if err != nil {
		return ExperimentView{}, err
	}
	meta.ID = id

	d, i := s.duration, s.interval
	if duration != nil {
		d = *duration
	}
	if interval != nil {
		i = *interval
	}

	exp, err := experiment.New(id, d, i, s.services, s.experimentOptions()...)
	if err != nil {
		return ExperimentView{}, err
	}
	return s.insert(meta, exp), nil
}

// CreateFromDefinition adds an experiment built from a parsed experiment file
func (s *DesignStore) CreateFromDefinition(meta models.ExperimentMeta, def *config.ExperimentDefinition) (ExperimentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.claimID(meta.ID)
	if err != nil {
		return ExperimentView{}, err
	}
	meta.ID = id
	if meta.Name == "" {
		meta.Name = def.Name
	}

	exp, err := experiment.FromDefinition(id, def, s.services, s.experimentOptions()...)
	if err != nil {
		return ExperimentView{}, err
	}
	return s.insert(meta, exp), nil
}

// Get returns a view of an experiment
func (s *DesignStore) Get(id string) (ExperimentView, error) {
	var view ExperimentView
	err := s.Update(id, func(rec *ExperimentRecord) error {
		view = newExperimentView(rec)
		return nil
	})
	return view, err
}

// Update runs fn on a record while holding the store lock
func (s *DesignStore) Update(id string, fn func(rec *ExperimentRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.experiments[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrExperimentNotFound, id)
	}
	return fn(rec)
}

// List returns summaries in creation order
func (s *DesignStore) List() []ExperimentSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ExperimentSummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, newExperimentSummary(s.experiments[id]))
	}
	return out
}

// Delete removes every workload of an experiment and drops it from the store
func (s *DesignStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.experiments[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrExperimentNotFound, id)
	}
	for _, ctrl := range rec.Experiment.Workloads() {
		if err := ctrl.Remove(); err != nil {
			s.log.Warn("workload removal failed", "experiment_id", id, "workload_id", ctrl.ID(), "error", err)
		}
	}
	delete(s.experiments, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// Services returns a copy of the service catalog
func (s *DesignStore) Services() []models.Service {
	return slices.Clone(s.services)
}

// ArrivalPatterns lists the registered arrival patterns
func (s *DesignStore) ArrivalPatterns() []arrival.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Policies()
}
