// Package checkin models the once-per-day-per-track check-in.
package checkin

import (
	"context"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// Award is the XP granted for one successful check-in.
const Award = 5

// ReasonAlreadyCheckedIn is returned when the flag was already set.
const ReasonAlreadyCheckedIn = "ALREADY_CHECKED_IN"

// DailyCheckin is the per-(learner, date) row. Flags only move false→true.
type DailyCheckin struct {
	ID          string
	LearnerID   string
	Date        shared.LocalDate
	DataTask    bool
	LangTask    bool
	SoftTask    bool
	XPGenerated int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Flag returns the flag for track.
func (d DailyCheckin) Flag(t shared.CheckinTrack) bool {
	switch t {
	case shared.CheckinData:
		return d.DataTask
	case shared.CheckinLang:
		return d.LangTask
	case shared.CheckinSoft:
		return d.SoftTask
	}
	return false
}

// Set raises the flag for track. It reports false if it was already raised.
func (d *DailyCheckin) Set(t shared.CheckinTrack) bool {
	var f *bool
	switch t {
	case shared.CheckinData:
		f = &d.DataTask
	case shared.CheckinLang:
		f = &d.LangTask
	case shared.CheckinSoft:
		f = &d.SoftTask
	default:
		return false
	}
	if *f {
		return false
	}
	*f = true
	return true
}

// NextStreak returns the streak after the first check-in on date, given the
// most recent earlier check-in date (zero if none) and the current streak.
func NextStreak(prev shared.LocalDate, current int, date shared.LocalDate) int {
	if !prev.IsZero() && prev.AddDays(1).Equal(date) && current > 0 {
		return current + 1
	}
	return 1
}

// Outcome is what the store reports for one check-in attempt.
type Outcome struct {
	Applied    bool
	Checkin    DailyCheckin
	XP         ledger.Event // zero unless Applied
	StreakDays int
}

// Repository persists check-ins.
type Repository interface {
	// Checkin atomically raises the flag for (learner, date, track) if it is
	// still false and, in the same transaction, credits award XP.
	// Applied=false means the flag was already set; nothing was written.
	Checkin(ctx context.Context, learnerID string, track shared.CheckinTrack, date shared.LocalDate, award int) (Outcome, error)

	// Get returns the row for (learner, date), or ErrCheckinNotFound.
	Get(ctx context.Context, learnerID string, date shared.LocalDate) (*DailyCheckin, error)
}

var ErrCheckinNotFound = shared.NotFound("checkin", "Get", "no check-in for this date")
