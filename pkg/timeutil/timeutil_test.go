package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalendarDay(t *testing.T) {
	riyadh := time.FixedZone("AST", 3*60*60)
	// 22:30 UTC on the 1st is already the 2nd in Riyadh.
	instant := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, day("2026-03-01"), CalendarDay(instant, time.UTC))
	assert.Equal(t, day("2026-03-02"), CalendarDay(instant, riyadh))
}

func TestIsPlausibleToday(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsPlausibleToday(now, day("2026-03-01")))
	assert.True(t, IsPlausibleToday(now, day("2026-03-02")), "UTC+14 is already on the 2nd")
	assert.False(t, IsPlausibleToday(now, day("2026-02-28")), "UTC-12 is already on the 1st")
	assert.False(t, IsPlausibleToday(now, day("2026-03-03")))
}

func TestLocalDayWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	earliest, latest := LocalDayWindow(now)
	assert.Equal(t, day("2026-02-28"), earliest)
	assert.Equal(t, day("2026-03-01"), latest)
}

func TestNextRun(t *testing.T) {
	now := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)

	next := NextRun(now, 3, 30, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 3, 30, 0, 0, time.UTC), next)

	next = NextRun(now, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC), next)
}

func TestLoadZone(t *testing.T) {
	loc, err := LoadZone("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadZone("Not/AZone")
	assert.Error(t, err)
}
