package workload

import (
	"errors"
	"fmt"
	"slices"

	"github.com/GoSim-25-26J-441/loadcurve/internal/arrival"
	"github.com/GoSim-25-26J-441/loadcurve/internal/curve"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

var (
	// ErrMissingService reports a configuration submitted without a target service
	ErrMissingService = errors.New("no service selected")
	// ErrTickCount reports ticks that do not cover duration/interval
	ErrTickCount = errors.New("tick count does not match duration and interval")
)

// TickSource provides the derived ticks of a curve; curve.Model implements it
type TickSource interface {
	Ticks() ([]float64, error)
}

// Params are the user-chosen parameters of one workload
type Params struct {
	// Service is nil while nothing is selected
	Service        *models.Service
	ClientsPerHost int
	ArrivalPattern string
}

// Builder projects a curve and its parameters into a WorkloadConfiguration
type Builder struct {
	arrivals *arrival.Selector
}

// NewBuilder creates a builder validating patterns against arrivals
func NewBuilder(arrivals *arrival.Selector) *Builder {
	if arrivals == nil {
		arrivals = arrival.NewSelector()
	}
	return &Builder{arrivals: arrivals}
}

// Build returns a fresh configuration. It never derives ticks itself.
func (b *Builder) Build(src TickSource, p Params) (models.WorkloadConfiguration, error) {
	if src == nil {
		return models.WorkloadConfiguration{}, curve.ErrUninitializedCurve
	}
	if err := b.arrivals.Validate(p.ArrivalPattern); err != nil {
		return models.WorkloadConfiguration{}, err
	}
	ticks, err := src.Ticks()
	if err != nil {
		return models.WorkloadConfiguration{}, fmt.Errorf("build workload: %w", err)
	}

	clients := p.ClientsPerHost
	if clients < 0 {
		clients = 0
	}

	return models.WorkloadConfiguration{
		Service:        serviceName(p.Service),
		Ticks:          slices.Clone(ticks),
		ClientsPerHost: clients,
		ArrivalPattern: p.ArrivalPattern,
	}, nil
}

func serviceName(s *models.Service) string {
	if s == nil {
		return ""
	}
	return s.Name
}

// ValidateForSubmission checks what the engine requires beyond a draft:
// a chosen service and exactly floor(duration/interval)+1 ticks.
func ValidateForSubmission(cfg models.WorkloadConfiguration, duration, interval float64) error {
	if cfg.Service == "" {
		return ErrMissingService
	}
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", curve.ErrInvalidParameter, interval)
	}
	if want := curve.TickCount(duration, interval); len(cfg.Ticks) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrTickCount, len(cfg.Ticks), want)
	}
	return nil
}
