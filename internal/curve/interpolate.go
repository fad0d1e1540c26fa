package curve

import (
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/utils"
)

// evaluator evaluates one curve at arbitrary times. Points must be sorted by X.
type evaluator struct {
	kind     models.CurveKind
	points   []models.Point
	tangents []float64 // monotone only
}

func newEvaluator(kind models.CurveKind, points []models.Point) *evaluator {
	e := &evaluator{kind: kind, points: points}
	if kind == models.CurveMonotone {
		e.tangents = monotoneTangents(points)
	}
	return e
}

// at returns the curve value at t with clamped extrapolation
func (e *evaluator) at(t float64) float64 {
	n := len(e.points)
	if n == 0 {
		return 0
	}

	// i is the number of points with X <= t
	i := sort.Search(n, func(k int) bool { return e.points[k].X > t })
	if i == 0 {
		return e.points[0].Y
	}
	if i == n {
		return e.points[n-1].Y
	}

	p0, p1 := e.points[i-1], e.points[i]
	switch e.kind {
	case models.CurveStep:
		return p0.Y
	case models.CurveMonotone:
		return hermite(p0, p1, e.tangents[i-1], e.tangents[i], t)
	default:
		return utils.Lerp(p0.X, p0.Y, p1.X, p1.Y, t)
	}
}

// monotoneTangents computes Fritsch-Carlson tangents so the cubic never
// overshoots between neighbouring control points.
func monotoneTangents(points []models.Point) []float64 {
	n := len(points)
	m := make([]float64, n)
	if n < 2 {
		return m
	}

	d := make([]float64, n-1)
	for k := 0; k < n-1; k++ {
		h := points[k+1].X - points[k].X
		if h > 0 {
			d[k] = (points[k+1].Y - points[k].Y) / h
		}
	}

	m[0] = d[0]
	m[n-1] = d[n-2]
	for k := 1; k < n-1; k++ {
		if d[k-1]*d[k] <= 0 {
			m[k] = 0
		} else {
			m[k] = (d[k-1] + d[k]) / 2
		}
	}

	for k := 0; k < n-1; k++ {
		if d[k] == 0 {
			m[k] = 0
			m[k+1] = 0
			continue
		}
		a := m[k] / d[k]
		b := m[k+1] / d[k]
		if s := a*a + b*b; s > 9 {
			tau := 3 / math.Sqrt(s)
			m[k] = tau * a * d[k]
			m[k+1] = tau * b * d[k]
		}
	}
	return m
}

func hermite(p0, p1 models.Point, m0, m1, t float64) float64 {
	h := p1.X - p0.X
	s := (t - p0.X) / h
	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	return h00*p0.Y + h10*h*m0 + h01*p1.Y + h11*h*m1
}
