package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeUnit is a human time unit. All internal computation uses seconds.
type TimeUnit string

const (
	Milliseconds TimeUnit = "ms"
	Seconds      TimeUnit = "s"
	Minutes      TimeUnit = "m"
	Hours        TimeUnit = "h"
	Days         TimeUnit = "d"
)

// unitSeconds is the fixed multiplier table from a unit to canonical seconds
var unitSeconds = map[TimeUnit]float64{
	Milliseconds: 0.001,
	Seconds:      1,
	Minutes:      60,
	Hours:        3600,
	Days:         86400,
}

// TimeUnits returns the declared units from smallest to largest
func TimeUnits() []TimeUnit {
	return []TimeUnit{Milliseconds, Seconds, Minutes, Hours, Days}
}

// Valid reports whether u is a declared unit
func (u TimeUnit) Valid() bool {
	_, ok := unitSeconds[u]
	return ok
}

// ParseTimeUnit resolves a unit name. Long forms ("seconds", "min", ...) are accepted.
func ParseTimeUnit(name string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ms", "millisecond", "milliseconds":
		return Milliseconds, nil
	case "s", "sec", "second", "seconds":
		return Seconds, nil
	case "m", "min", "minute", "minutes":
		return Minutes, nil
	case "h", "hour", "hours":
		return Hours, nil
	case "d", "day", "days":
		return Days, nil
	}
	return "", fmt.Errorf("unknown time unit: %q", name)
}

// ToSeconds converts value in unit to canonical seconds.
// An undeclared unit is a programming error and panics; use ParseTimeUnit or
// Time.Validate at input boundaries.
func ToSeconds(value float64, unit TimeUnit) float64 {
	mult, ok := unitSeconds[unit]
	if !ok {
		panic(fmt.Sprintf("utils: undeclared time unit %q", string(unit)))
	}
	return value * mult
}

// Time is a magnitude tagged with a unit
type Time struct {
	Value float64  `json:"value" yaml:"value"`
	Unit  TimeUnit `json:"unit" yaml:"unit"`
}

// NewTime returns a Time in the given unit
func NewTime(value float64, unit TimeUnit) Time {
	return Time{Value: value, Unit: unit}
}

// Validate checks the unit is declared and the magnitude is finite and non-negative
func (t Time) Validate() error {
	if !t.Unit.Valid() {
		return fmt.Errorf("unknown time unit: %q", string(t.Unit))
	}
	if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
		return fmt.Errorf("time value must be finite, got %v", t.Value)
	}
	if t.Value < 0 {
		return fmt.Errorf("time value cannot be negative, got %v", t.Value)
	}
	return nil
}

// Seconds returns t in canonical seconds
func (t Time) Seconds() float64 {
	return ToSeconds(t.Value, t.Unit)
}

func (t Time) String() string {
	return strconv.FormatFloat(t.Value, 'f', -1, 64) + string(t.Unit)
}

// ParseTime parses strings such as "10s", "2m", "500ms" or "1.5h".
// A bare number is taken as seconds.
func ParseTime(s string) (Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Time{}, fmt.Errorf("empty time value")
	}

	split := len(raw)
	for i, r := range raw {
		if (r < '0' || r > '9') && r != '.' {
			split = i
			break
		}
	}

	value, err := strconv.ParseFloat(raw[:split], 64)
	if err != nil {
		return Time{}, fmt.Errorf("invalid time value %q: %w", s, err)
	}

	unit := Seconds
	if split < len(raw) {
		unit, err = ParseTimeUnit(raw[split:])
		if err != nil {
			return Time{}, fmt.Errorf("invalid time value %q: %w", s, err)
		}
	}

	t := Time{Value: value, Unit: unit}
	if err := t.Validate(); err != nil {
		return Time{}, err
	}
	return t, nil
}

// FormatSeconds renders canonical seconds the way the engine expects them ("10s", "2.5s")
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64) + string(Seconds)
}
