package race

import (
	"errors"
	"time"
)

// Timing rejections. These never surface over HTTP; callers drop the
// offending trigger and log it.
var (
	// ErrNotRunning reports a sensor trigger outside the running phase.
	// Sensors may fire during setup or cooldown and must not become laps.
	ErrNotRunning = errors.New("race is not running")

	// ErrUnknownTrack reports a trigger for a track id that is not configured.
	ErrUnknownTrack = errors.New("unknown track")

	// ErrOutOfOrder reports a finish timestamp at or before the lap start
	// (clock skew or a duplicate trigger).
	ErrOutOfOrder = errors.New("lap finish not after lap start")

	// ErrTooSoon reports a lap shorter than the configured minimum, i.e. a
	// spurious double trigger of the same gate.
	ErrTooSoon = errors.New("lap shorter than minimum")
)

// SplitLap converts a track's current-lap start and a sensor finish
// timestamp into a lap duration. min > 0 enables the double-trigger guard.
func SplitLap(start, finish time.Time, min time.Duration) (time.Duration, error) {
	d := finish.Sub(start)
	if d <= 0 {
		return 0, ErrOutOfOrder
	}
	if min > 0 && d < min {
		return 0, ErrTooSoon
	}
	return d, nil
}
