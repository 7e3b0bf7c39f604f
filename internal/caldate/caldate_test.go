package caldate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	t.Run("Strips Time Of Day", func(t *testing.T) {
		key, err := NormalizeKey("2025-02-03T23:30:00.000Z")
		require.NoError(t, err)
		assert.Equal(t, "2025-02-03", key, "UTC suffix must not shift the date")
	})

	t.Run("Plain Date", func(t *testing.T) {
		key, err := NormalizeKey(" 2025-02-03 ")
		require.NoError(t, err)
		assert.Equal(t, "2025-02-03", key)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, in := range []string{"", "2025-2-3", "not a date", "2025-13-01"} {
			_, err := NormalizeKey(in)
			assert.ErrorIs(t, err, ErrInvalidDate, "input %q", in)
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)

	ts, dateOnly, err := ParseTimestamp("2025-03-01", loc)
	require.NoError(t, err)
	assert.True(t, dateOnly)
	assert.True(t, time.Date(2025, 3, 1, 0, 0, 0, 0, loc).Equal(ts))

	ts, dateOnly, err = ParseTimestamp("2025-03-01T09:15", loc)
	require.NoError(t, err)
	assert.False(t, dateOnly)
	assert.Equal(t, 9, ts.Hour())

	ts, _, err = ParseTimestamp("2025-03-01T23:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-02", Key(ts), "zoned timestamps convert into the display zone")

	_, _, err = ParseTimestamp("yesterday", loc)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestWeekStart(t *testing.T) {
	sunday := time.Date(2025, 1, 12, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-06", Key(WeekStart(sunday)), "Sunday belongs to the preceding Monday's week")

	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-06", Key(WeekStart(monday)))
}

func TestDays(t *testing.T) {
	from := time.Date(2025, 1, 30, 10, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 2, 1, 0, 0, 0, time.UTC)

	days := Days(from, to)
	require.Len(t, days, 4)
	assert.Equal(t, "2025-01-30", Key(days[0]))
	assert.Equal(t, "2025-02-02", Key(days[3]))
	assert.Equal(t, 0, days[0].Hour(), "days are midnights")

	assert.Nil(t, Days(to, from), "inverted range yields nothing")
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 1, 6, 23, 0, 0, 0, time.UTC)
	b := time.Date(2025, 1, 20, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 14, DaysBetween(a, b))
	assert.Equal(t, -14, DaysBetween(b, a))
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]time.Weekday{
		"Monday":     time.Monday,
		"  monday ":  time.Monday,
		"SUNDAY":     time.Sunday,
		"wed":        time.Wednesday,
		"Saturday\n": time.Saturday,
	}
	for in, want := range cases {
		got, ok := ParseWeekday(in)
		assert.True(t, ok, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, ok := ParseWeekday("Funday")
	assert.False(t, ok)
	_, ok = ParseWeekday("")
	assert.False(t, ok)

	assert.True(t, SameWeekday(" tuesday", time.Tuesday))
	assert.False(t, SameWeekday("tuesday", time.Monday))
}

func TestClock(t *testing.T) {
	h, m, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8, h)
	assert.Equal(t, 30, m)

	_, _, err = ParseClock("08:30:00")
	assert.NoError(t, err, "seconds suffix tolerated")

	for _, in := range []string{"", "8", "25:00", "24:30", "10:60", "ab:cd"} {
		_, _, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrInvalidClock, "input %q", in)
	}

	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	at, err := At(day, "24:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-07", Key(at))
}
