package clock

import "time"

// Clock abstracts time so deadline logic can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation used in production wiring.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a Clock pinned to a single instant, for tests.
type Fixed struct {
	T time.Time
}

// Now returns the pinned instant.
func (f Fixed) Now() time.Time {
	return f.T
}
