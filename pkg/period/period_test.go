package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse(" Daily ")
	require.NoError(t, err)
	require.Equal(t, Daily, p)

	p, err = Parse("weekly")
	require.NoError(t, err)
	require.Equal(t, Weekly, p)

	_, err = Parse("monthly")
	require.Error(t, err)
}

func TestOfDailyUsesLocation(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	// 23:30 UTC on the 1st is 00:30 on the 2nd in WAT.
	at := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)

	w := Of(Daily, at, lagos)
	require.Equal(t, time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC), w.Start)
	require.Equal(t, time.Date(2024, 3, 2, 23, 0, 0, 0, time.UTC), w.End)
	require.True(t, w.Contains(at))
	require.False(t, w.Contains(w.End))
}

func TestOfWeeklyStartsMonday(t *testing.T) {
	// Sunday 10 March 2024.
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	w := Of(Weekly, at, time.UTC)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), w.Start)
	require.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), w.End)
	require.Equal(t, time.Monday, w.Start.Weekday())
}

func TestPrevious(t *testing.T) {
	w := Of(Daily, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), time.UTC)
	prev := w.Previous(time.UTC)
	require.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), prev.Start)
	require.Equal(t, w.Start, prev.End)

	weekly := Of(Weekly, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), time.UTC)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), weekly.Previous(time.UTC).Start)
}

func TestEnded(t *testing.T) {
	w := Of(Daily, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC), time.UTC)
	require.False(t, w.Ended(time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)))
	require.True(t, w.Ended(w.End))
}
