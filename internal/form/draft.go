package form

import (
	"github.com/GoSim-25-26J-441/loadcurve/internal/workload"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

// Draft collects the changes of one edit; the controller rebuilds once
// after the edit function returns. A Draft is only valid inside that
// function: changes made through a retained Draft are not rebuilt or emitted.
//
// Curve setters drop the model's error: the model keeps it and the rebuild
// surfaces it through Ticks as the controller's Err.
type Draft struct {
	c *Controller
}

// SetService selects a service; nil clears the selection
func (d Draft) SetService(s *models.Service) {
	if s == nil {
		d.c.params.Service = nil
		return
	}
	svc := *s
	d.c.params.Service = &svc
}

// SetClientsPerHost applies the free-text clients field
func (d Draft) SetClientsPerHost(raw string) {
	d.c.params.ClientsPerHost = workload.ParseClientsPerHost(raw)
}

// SetArrivalPattern sets the pattern tag; it is validated on rebuild
func (d Draft) SetArrivalPattern(tag string) {
	d.c.params.ArrivalPattern = tag
}

// SetPoints replaces the control points
func (d Draft) SetPoints(points []models.Point) {
	_ = d.c.model.SetPoints(points)
}

// SetCurve changes the interpolation kind
func (d Draft) SetCurve(kind models.CurveKind) {
	_ = d.c.model.SetKind(kind)
}

// SetMaxRate applies the free-text max requests/second field
func (d Draft) SetMaxRate(raw string) {
	_ = d.c.model.SetMaxRate(workload.ParseMaxRate(raw))
}
