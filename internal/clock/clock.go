package clock

import "time"

// Clock abstracts time so session transitions are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns UTC wall-clock time truncated to whole seconds, which
// keeps stored timestamps fixed-width and comparable as text in SQLite.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}
