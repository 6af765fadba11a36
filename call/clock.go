package call

import "time"

// Clock abstracts wall-clock time and timer creation so the network-loss
// grace window can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a stoppable pending timer.
type Timer interface {
	// Stop cancels the timer and reports whether it was still pending.
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the real-time clock used outside of tests.
func SystemClock() Clock { return systemClock{} }
