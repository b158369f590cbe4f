package booking

import "context"

// ConflictProbe answers whether the given room has a conflicting booking for
// the interval. Implementations are expected to hold whatever room-scoped
// exclusion the surrounding store requires while answering.
type ConflictProbe func(ctx context.Context, roomID string, interval Interval) (bool, error)

// FirstFit walks the candidate room ids in order and returns the first one
// whose probe reports no conflict. The ordering of roomIDs is the allocation
// policy: callers pass a stable ordering (by room name) so results are
// deterministic and testable. The bool result is false when every candidate
// conflicts.
func FirstFit(ctx context.Context, roomIDs []string, interval Interval, probe ConflictProbe) (string, bool, error) {
	for _, roomID := range roomIDs {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		conflict, err := probe(ctx, roomID, interval)
		if err != nil {
			return "", false, err
		}
		if !conflict {
			return roomID, true, nil
		}
	}
	return "", false, nil
}
