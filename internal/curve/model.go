package curve

import (
	"fmt"
	"slices"

	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

// Model owns a live CurveForm and keeps its ticks derived from its points.
// Every mutation recomputes the ticks; when recomputation fails the ticks are
// dropped and Ticks reports the error until a later mutation succeeds.
type Model struct {
	form     models.CurveForm
	duration float64
	interval float64
	maxRate  float64
	timed    bool
	err      error
}

// NewModel takes a private copy of form. Ticks are unavailable until SetTiming.
func NewModel(form models.CurveForm) *Model {
	m := &Model{form: form.Clone()}
	if m.form.Curve == "" {
		m.form.Curve = models.CurveLinear
	}
	m.form.Points = sortPoints(m.form.Points)
	m.form.Ticks = nil
	m.err = ErrUninitializedCurve
	return m
}

// SetTiming sets duration and interval in seconds and recomputes
func (m *Model) SetTiming(duration, interval float64) error {
	m.duration = duration
	m.interval = interval
	m.timed = true
	return m.recompute()
}

// SetPoints replaces the control points and recomputes
func (m *Model) SetPoints(points []models.Point) error {
	m.form.Points = sortPoints(points)
	return m.recompute()
}

// SetKind changes the interpolation and recomputes
func (m *Model) SetKind(kind models.CurveKind) error {
	m.form.Curve = kind
	return m.recompute()
}

// SetMaxRate sets the tick ceiling (0 disables it) and recomputes
func (m *Model) SetMaxRate(rate float64) error {
	m.maxRate = rate
	return m.recompute()
}

func (m *Model) recompute() error {
	m.form.Ticks = nil
	if !m.timed {
		m.err = ErrUninitializedCurve
		return m.err
	}
	ticks, err := Discretize(m.form.Curve, m.form.Points, m.duration, m.interval, Options{MaxRate: m.maxRate})
	if err != nil {
		m.err = err
		return err
	}
	m.form.Ticks = ticks
	m.err = nil
	return nil
}

// Err returns the error that left the ticks unavailable, if any
func (m *Model) Err() error {
	return m.err
}

// Ticks returns a copy of the current ticks
func (m *Model) Ticks() ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.form.Ticks), nil
}

// Points returns a copy of the control points, sorted by X
func (m *Model) Points() []models.Point {
	return slices.Clone(m.form.Points)
}

// Kind returns the interpolation kind
func (m *Model) Kind() models.CurveKind {
	return m.form.Curve
}

// MaxRate returns the tick ceiling, 0 when disabled
func (m *Model) MaxRate() float64 {
	return m.maxRate
}

// Timing returns duration and interval in seconds
func (m *Model) Timing() (duration, interval float64) {
	return m.duration, m.interval
}

// Snapshot returns a deep copy of the current form
func (m *Model) Snapshot() models.CurveForm {
	return m.form.Clone()
}

// Restore replaces curve, points and ticks with independent copies of snap.
// Ticks are recomputed against the current timing so they never go stale.
func (m *Model) Restore(snap models.CurveForm) error {
	restored := snap.Clone()
	if restored.Curve == "" {
		restored.Curve = models.CurveLinear
	}
	restored.Points = sortPoints(restored.Points)
	m.form = restored
	if err := m.recompute(); err != nil {
		return fmt.Errorf("restore curve: %w", err)
	}
	return nil
}
