package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

func TestDiscretizeLinearScenario(t *testing.T) {
	points := []models.Point{{X: 0, Y: 10}, {X: 60, Y: 50}}

	ticks, err := Discretize(models.CurveLinear, points, 60, 30, Options{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 30, 50}, ticks, 1e-9)
}

func TestDiscretizeTickCount(t *testing.T) {
	points := []models.Point{{X: 5, Y: 1}, {X: 20, Y: 8}, {X: 40, Y: 3}}
	tests := []struct {
		duration, interval float64
		want               int
	}{
		{60, 30, 3},
		{10, 2, 6},
		{10, 3, 4},
		{10, 0.1, 101},
		{0, 1, 1},
		{59.9, 30, 2},
	}

	for _, tt := range tests {
		for _, kind := range []models.CurveKind{models.CurveLinear, models.CurveStep, models.CurveMonotone} {
			ticks, err := Discretize(kind, points, tt.duration, tt.interval, Options{})
			require.NoError(t, err)
			assert.Len(t, ticks, tt.want, "kind=%s duration=%v interval=%v", kind, tt.duration, tt.interval)
			assert.Equal(t, int(math.Floor(tt.duration/tt.interval+1e-9))+1, len(ticks))
			assert.Equal(t, newEvaluator(kind, points).at(0), ticks[0])
		}
	}
}

func TestDiscretizeClampedExtrapolation(t *testing.T) {
	points := []models.Point{{X: 20, Y: 5}, {X: 40, Y: 15}}

	ticks, err := Discretize(models.CurveLinear, points, 60, 10, Options{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 5, 5, 10, 15, 15, 15}, ticks, 1e-9)
}

func TestDiscretizeStep(t *testing.T) {
	points := []models.Point{{X: 0, Y: 1}, {X: 15, Y: 4}, {X: 30, Y: 2}}

	ticks, err := Discretize(models.CurveStep, points, 40, 10, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 4, 2, 2}, ticks)
}

func TestDiscretizeMonotoneStaysWithinNeighbours(t *testing.T) {
	points := []models.Point{{X: 0, Y: 0}, {X: 10, Y: 100}, {X: 20, Y: 100}, {X: 30, Y: 20}}

	ticks, err := Discretize(models.CurveMonotone, points, 30, 0.5, Options{})
	require.NoError(t, err)

	for i, v := range ticks {
		ts := float64(i) * 0.5
		switch {
		case ts <= 10:
			assert.True(t, v >= 0 && v <= 100, "t=%v v=%v", ts, v)
		case ts <= 20:
			assert.InDelta(t, 100, v, 1e-9, "flat segment must stay flat at t=%v", ts)
		default:
			assert.True(t, v >= 20 && v <= 100, "t=%v v=%v", ts, v)
		}
	}
	// passes through control points
	assert.InDelta(t, 0, ticks[0], 1e-9)
	assert.InDelta(t, 100, ticks[20], 1e-9)
	assert.InDelta(t, 20, ticks[60], 1e-9)
}

func TestDiscretizeSortsPointsWithoutMutatingInput(t *testing.T) {
	points := []models.Point{{X: 60, Y: 50}, {X: 0, Y: 10}}

	ticks, err := Discretize(models.CurveLinear, points, 60, 30, Options{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 30, 50}, ticks, 1e-9)
	assert.Equal(t, 60.0, points[0].X)
}

func TestDiscretizeDuplicateXTakesLaterPoint(t *testing.T) {
	points := []models.Point{{X: 0, Y: 1}, {X: 10, Y: 1}, {X: 10, Y: 9}, {X: 20, Y: 9}}

	ticks, err := Discretize(models.CurveLinear, points, 20, 10, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 9, 9}, ticks)
}

func TestDiscretizeEmptyPoints(t *testing.T) {
	ticks, err := Discretize(models.CurveLinear, nil, 10, 5, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, ticks)
}

func TestDiscretizeMaxRate(t *testing.T) {
	points := []models.Point{{X: 0, Y: 500}, {X: 10, Y: 1500}}

	ticks, err := Discretize(models.CurveLinear, points, 10, 5, Options{MaxRate: 1000})
	require.NoError(t, err)
	assert.Equal(t, []float64{500, 1000, 1000}, ticks)
}

func TestDiscretizeInvalidParameters(t *testing.T) {
	points := []models.Point{{X: 0, Y: 1}}
	tests := []struct {
		name     string
		kind     models.CurveKind
		points   []models.Point
		duration float64
		interval float64
		opts     Options
	}{
		{"zero interval", models.CurveLinear, points, 10, 0, Options{}},
		{"negative interval", models.CurveLinear, points, 10, -1, Options{}},
		{"negative duration", models.CurveLinear, points, -1, 1, Options{}},
		{"nan duration", models.CurveLinear, points, math.NaN(), 1, Options{}},
		{"unknown kind", models.CurveKind("basis"), points, 10, 1, Options{}},
		{"negative rate", models.CurveLinear, []models.Point{{X: 0, Y: -1}}, 10, 1, Options{}},
		{"infinite x", models.CurveLinear, []models.Point{{X: math.Inf(1), Y: 1}}, 10, 1, Options{}},
		{"negative max rate", models.CurveLinear, points, 10, 1, Options{MaxRate: -5}},
		{"tick count overflows int", models.CurveLinear, points, 1e30, 1e-3, Options{}},
		{"infinite tick ratio", models.CurveLinear, points, 1e300, 1e-300, Options{}},
		{"too many ticks", models.CurveLinear, points, MaxTicks, 1, Options{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Discretize(tt.kind, tt.points, tt.duration, tt.interval, tt.opts)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestDiscretizeAtTickLimit(t *testing.T) {
	ticks, err := Discretize(models.CurveLinear, []models.Point{{X: 0, Y: 2}}, MaxTicks-1, 1, Options{})
	require.NoError(t, err)
	assert.Len(t, ticks, MaxTicks)
}

func TestValidateTiming(t *testing.T) {
	assert.NoError(t, ValidateTiming(60, 30))
	assert.ErrorIs(t, ValidateTiming(8.64e27, 1e-6), ErrInvalidParameter)
	assert.ErrorIs(t, ValidateTiming(10, 0), ErrInvalidParameter)
}
