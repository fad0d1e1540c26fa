package utils

import (
	"math"
)

// ClampFloat64 clamps a float64 value between min and max
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// IsFinite reports whether v is neither NaN nor an infinity
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Lerp linearly interpolates between (x0, y0) and (x1, y1) at x.
// A zero-width segment returns y1.
func Lerp(x0, y0, x1, y1, x float64) float64 {
	if x1 == x0 {
		return y1
	}
	w := (x - x0) / (x1 - x0)
	return y0 + (y1-y0)*w
}

// maxStepCount keeps StepCount+1 representable
const maxStepCount = math.MaxInt32

// StepCount returns floor(total/step) with a small relative tolerance so that
// values such as 10/0.1 do not lose a step to floating-point error.
// Results saturate at math.MaxInt32; NaN yields 0.
func StepCount(total, step float64) int {
	if !(step > 0) || !(total >= 0) {
		return 0
	}
	q := math.Floor(total/step + total/step*1e-9 + 1e-12)
	if q >= maxStepCount {
		return maxStepCount
	}
	return int(q)
}
