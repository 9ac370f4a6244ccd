package race

import "time"

// Clock is the time source for lap math. time.Time values from the system
// clock carry a monotonic reading, so subtractions are immune to wall-clock
// adjustments mid-race.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real time source.
func SystemClock() Clock { return systemClock{} }
