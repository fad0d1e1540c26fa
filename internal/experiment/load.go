package experiment

import (
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/loadcurve/internal/form"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/config"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

// ErrUnknownService reports a workload naming a service outside the catalog
var ErrUnknownService = errors.New("unknown service")

// FromDefinition builds an experiment from a parsed experiment file.
// Invalid points or an unknown service fail the load. A rejected arrival
// pattern keeps the workload with its error active, so Validate reports it
// alongside the healthy entries.
func FromDefinition(id string, def *config.ExperimentDefinition, services []models.Service, opts ...Option) (*Experiment, error) {
	duration, err := def.GetDuration()
	if err != nil {
		return nil, fmt.Errorf("experiment duration: %w", err)
	}
	interval, err := def.GetInterval()
	if err != nil {
		return nil, fmt.Errorf("experiment interval: %w", err)
	}

	e, err := New(id, duration, interval, services, opts...)
	if err != nil {
		return nil, err
	}

	for i, wl := range def.Workloads {
		if err := e.addDefinition(wl); err != nil {
			return nil, fmt.Errorf("workload %d: %w", i, err)
		}
	}
	return e, nil
}

func (e *Experiment) addDefinition(wl config.WorkloadDefinition) error {
	var svc *models.Service
	if wl.Service != "" {
		s, ok := e.Service(wl.Service)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownService, wl.Service)
		}
		svc = &s
	}

	ctrl, err := e.AddWorkload(models.CurveForm{
		Curve:  models.CurveKind(wl.Curve),
		Points: wl.Points,
	})
	if err != nil {
		return err
	}

	err = ctrl.Edit(func(d form.Draft) {
		d.SetService(svc)
		if wl.ClientsPerHost != "" {
			d.SetClientsPerHost(wl.ClientsPerHost)
		}
		if wl.ArrivalPattern != "" {
			d.SetArrivalPattern(wl.ArrivalPattern)
		}
		if wl.MaxRPS != "" {
			d.SetMaxRate(wl.MaxRPS)
		}
	})
	if err != nil {
		e.log.Warn("workload definition rejected", "workload_id", ctrl.ID(), "error", err)
	}
	return nil
}
