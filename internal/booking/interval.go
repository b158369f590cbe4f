package booking

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned when an interval's end does not come after its start.
var ErrInvalidInterval = errors.New("booking: interval end must be after start")

// Interval represents a half-open time range [Start, End). The start instant
// belongs to the interval, the end instant does not, so a booking ending at
// 10:00 never collides with one starting at 10:00.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval constructs an Interval, rejecting ranges where end <= start.
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals share any instant.
// The single predicate a.Start < b.End && b.Start < a.End subsumes partial
// overlap and full containment in either direction.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}
