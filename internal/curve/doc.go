// Package curve turns user-authored load curves into discrete rate samples.
//
// A curve is a set of control points (seconds, requests/second). Discretize
// evaluates it every interval seconds over [0, duration], holding the first
// and last control values outside the authored range. Model keeps the ticks
// of a live, editable curve consistent with its points and timing, and
// supports deep snapshots for reset.
package curve
