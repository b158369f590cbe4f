package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConflict(t *testing.T) {
	existing := []Entry{
		{ID: "b1", Interval: Interval{Start: at(9, 0), End: at(10, 0)}, Status: StatusConfirmed},
		{ID: "b2", Interval: Interval{Start: at(11, 0), End: at(12, 0)}, Status: StatusCancelled},
		{ID: "b3", Interval: Interval{Start: at(14, 0), End: at(15, 0)}, Status: StatusConfirmed},
	}

	t.Run("reports overlapping confirmed entry", func(t *testing.T) {
		hit, found := FindConflict(existing, Interval{Start: at(9, 30), End: at(10, 30)}, "")
		require.True(t, found)
		assert.Equal(t, "b1", hit.ID)
	})

	t.Run("cancelled entries never conflict", func(t *testing.T) {
		_, found := FindConflict(existing, Interval{Start: at(11, 0), End: at(12, 0)}, "")
		assert.False(t, found)
	})

	t.Run("adjacent slots do not conflict", func(t *testing.T) {
		_, found := FindConflict(existing, Interval{Start: at(10, 0), End: at(11, 0)}, "")
		assert.False(t, found)
	})

	t.Run("excluded id is skipped for reschedule in place", func(t *testing.T) {
		_, found := FindConflict(existing, Interval{Start: at(14, 0), End: at(15, 0)}, "b3")
		assert.False(t, found)
	})

	t.Run("exclusion does not hide other conflicts", func(t *testing.T) {
		hit, found := FindConflict(existing, Interval{Start: at(9, 0), End: at(15, 0)}, "b3")
		require.True(t, found)
		assert.Equal(t, "b1", hit.ID)
	})
}
