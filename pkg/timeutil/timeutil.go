// Package timeutil contains calendar-day helpers.
//
// Learners live in several time zones and the server never guesses which
// one: callers pass a local calendar day. The helpers here turn instants into
// calendar days and bound which days are plausible "today" values.
package timeutil

import (
	"time"
)

// Extremes of civil time zones in use.
var (
	EarliestZone = time.FixedZone("UTC-12", -12*60*60)
	LatestZone   = time.FixedZone("UTC+14", 14*60*60)
)

// LoadZone loads an IANA zone, falling back to UTC for an empty name.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// CalendarDay returns t's calendar day in loc as midnight UTC, the form
// stored in DATE columns.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LocalDayWindow returns the earliest and latest calendar days that are
// "today" somewhere on Earth at instant now.
func LocalDayWindow(now time.Time) (earliest, latest time.Time) {
	return CalendarDay(now, EarliestZone), CalendarDay(now, LatestZone)
}

// IsPlausibleToday reports whether day (midnight UTC) is "today" in some
// civil time zone at instant now.
func IsPlausibleToday(now, day time.Time) bool {
	earliest, latest := LocalDayWindow(now)
	return !day.Before(earliest) && !day.After(latest)
}

// NextRun returns the next instant after now that falls on hour:minute in
// loc. Used by daily scheduled jobs.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
