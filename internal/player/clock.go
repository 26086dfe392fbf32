package player

import "time"

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a [Clock] backed by [time.AfterFunc].
func SystemClock() Clock {
	return systemClock{}
}
