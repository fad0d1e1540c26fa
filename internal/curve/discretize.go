package curve

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/utils"
)

var (
	// ErrInvalidParameter reports bad timing, points or curve kind
	ErrInvalidParameter = errors.New("invalid curve parameter")
	// ErrUninitializedCurve reports ticks requested before timing was supplied
	ErrUninitializedCurve = errors.New("curve not initialized")
)

// MaxTicks bounds the ticks one curve may produce
const MaxTicks = 1_000_000

// Options tune discretization
type Options struct {
	// MaxRate caps every tick when > 0
	MaxRate float64
}

// TickCount returns the number of ticks for duration and interval (seconds)
func TickCount(duration, interval float64) int {
	return utils.StepCount(duration, interval) + 1
}

// Discretize samples the curve at t = i*interval for i = 0..floor(duration/interval).
// Points are sorted by X first; the input slice is not modified.
func Discretize(kind models.CurveKind, points []models.Point, duration, interval float64, opts Options) ([]float64, error) {
	if err := validateTiming(duration, interval); err != nil {
		return nil, err
	}
	if kind == "" {
		kind = models.CurveLinear
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown curve kind %q", ErrInvalidParameter, string(kind))
	}
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	if !utils.IsFinite(opts.MaxRate) || opts.MaxRate < 0 {
		return nil, fmt.Errorf("%w: max rate must be a non-negative number, got %v", ErrInvalidParameter, opts.MaxRate)
	}

	eval := newEvaluator(kind, sortPoints(points))
	ceiling := math.Inf(1)
	if opts.MaxRate > 0 {
		ceiling = opts.MaxRate
	}
	ticks := make([]float64, TickCount(duration, interval))
	for i := range ticks {
		ticks[i] = utils.ClampFloat64(eval.at(float64(i)*interval), 0, ceiling)
	}
	return ticks, nil
}

// ValidateTiming checks duration and interval (seconds) and that they yield at
// most MaxTicks ticks
func ValidateTiming(duration, interval float64) error {
	return validateTiming(duration, interval)
}

func validateTiming(duration, interval float64) error {
	if !utils.IsFinite(interval) || interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidParameter, interval)
	}
	if !utils.IsFinite(duration) || duration < 0 {
		return fmt.Errorf("%w: duration cannot be negative, got %v", ErrInvalidParameter, duration)
	}
	// checked on the quotient before any int conversion
	if q := duration / interval; !utils.IsFinite(q) || q >= MaxTicks {
		return fmt.Errorf("%w: duration %v / interval %v exceeds %d ticks", ErrInvalidParameter, duration, interval, MaxTicks)
	}
	return nil
}

func validatePoints(points []models.Point) error {
	for i, p := range points {
		if !utils.IsFinite(p.X) || !utils.IsFinite(p.Y) {
			return fmt.Errorf("%w: point %d is not finite", ErrInvalidParameter, i)
		}
		if p.Y < 0 {
			return fmt.Errorf("%w: point %d has negative rate %v", ErrInvalidParameter, i, p.Y)
		}
	}
	return nil
}

// sortPoints returns a copy of points stably sorted by X
func sortPoints(points []models.Point) []models.Point {
	out := slices.Clone(points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}
