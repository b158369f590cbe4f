package booking

// Status describes the lifecycle state of a booking.
type Status string

const (
	// StatusConfirmed is the default state of a freshly created booking.
	StatusConfirmed Status = "confirmed"
	// StatusCancelled is terminal; cancelled bookings never participate in
	// conflict detection again.
	StatusCancelled Status = "cancelled"
	// StatusCompleted is reserved for an external batch process and is never
	// produced by the lifecycle operations in this codebase.
	StatusCompleted Status = "completed"
)

// Entry is the minimal view of a persisted booking needed for conflict math.
type Entry struct {
	ID       string
	Interval Interval
	Status   Status
}

// FindConflict returns the first entry whose interval overlaps the candidate.
// Cancelled entries are skipped, as is the entry identified by excludeID so a
// reschedule never collides with the booking being moved.
func FindConflict(existing []Entry, candidate Interval, excludeID string) (Entry, bool) {
	for _, entry := range existing {
		if entry.Status == StatusCancelled {
			continue
		}
		if excludeID != "" && entry.ID == excludeID {
			continue
		}
		if entry.Interval.Overlaps(candidate) {
			return entry, true
		}
	}
	return Entry{}, false
}

// HasConflict reports whether any non-cancelled entry overlaps the candidate.
func HasConflict(existing []Entry, candidate Interval, excludeID string) bool {
	_, found := FindConflict(existing, candidate, excludeID)
	return found
}
