package journal

import "time"

// ReferenceNow is the fixed reference instant (2025-01-31T09:40:00Z) used when
// replies and seed data must not depend on the wall clock.
const ReferenceNow int64 = 1738316400000

// OneDay is a calendar day in epoch millis.
const OneDay int64 = 24 * 60 * 60 * 1000

// Clock resolves "now" for everything that buckets by date.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

// NewFixedClock returns a clock frozen at the given epoch millis.
func NewFixedClock(epochMillis int64) FixedClock {
	return FixedClock{At: time.UnixMilli(epochMillis).UTC()}
}

// Now returns the frozen instant.
func (c FixedClock) Now() time.Time { return c.At }

// ClockFor returns a FixedClock for a non-zero reference and the wall clock otherwise.
func ClockFor(referenceMillis int64) Clock {
	if referenceMillis > 0 {
		return NewFixedClock(referenceMillis)
	}
	return SystemClock{}
}
