package shared

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// ParseID validates a UUID coming from a request path or body and returns
// its canonical lowercase form. The error is a validation error naming field.
func ParseID(field, raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", WrapError("shared", "ParseID", ErrValidation,
			fmt.Sprintf("%s must be a UUID", field), ErrInvalidFormat)
	}
	return id.String(), nil
}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents a learner's experience points. Never negative.
type XP int

// MinXP is the floor every balance is clamped to.
const MinXP XP = 0

// Int returns the underlying int value.
func (x XP) Int() int { return int(x) }

// Apply adds delta and clamps at MinXP. It returns the new balance and the
// delta that was actually applied, which differs from delta only when a debit
// hit the floor.
func (x XP) Apply(delta int) (XP, int) {
	next := int(x) + delta
	if next < int(MinXP) {
		next = int(MinXP)
	}
	return XP(next), next - int(x)
}

// ═══════════════════════════════════════════════════════════════════════════
// Level
// ═══════════════════════════════════════════════════════════════════════════

// Level is the learner's general proficiency tier.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// IsValid checks the closed set.
func (l Level) IsValid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// EnglishLevel is the English sub-level used by english-track lessons.
type EnglishLevel string

const (
	EnglishA EnglishLevel = "A"
	EnglishB EnglishLevel = "B"
	EnglishC EnglishLevel = "C"
)

func (e EnglishLevel) IsValid() bool {
	return e == EnglishA || e == EnglishB || e == EnglishC
}

// VisibleTo reports whether an item restricted to filter is visible to a
// learner at level. A nil filter means the item is visible to every level.
func VisibleTo(filter *Level, level Level) bool {
	return filter == nil || *filter == "" || *filter == level
}

// ═══════════════════════════════════════════════════════════════════════════
// Tracks
// ═══════════════════════════════════════════════════════════════════════════

// Track is a learning category. The three fixed tracks take part in overall
// progress; any other non-empty string is a custom track.
type Track string

const (
	TrackData    Track = "data"
	TrackEnglish Track = "english"
	TrackSoft    Track = "soft"
)

// FixedTracks lists the tracks averaged into overall progress, in display order.
var FixedTracks = []Track{TrackData, TrackEnglish, TrackSoft}

// IsFixed reports whether t is one of the three fixed tracks.
func (t Track) IsFixed() bool {
	return t == TrackData || t == TrackEnglish || t == TrackSoft
}

func (t Track) String() string { return string(t) }

// CheckinTrack names one of the three daily check-in flags.
// Note: the english flag is called "lang" on check-ins.
type CheckinTrack string

const (
	CheckinData CheckinTrack = "data"
	CheckinLang CheckinTrack = "lang"
	CheckinSoft CheckinTrack = "soft"
)

// ParseCheckinTrack validates s against the closed set.
func ParseCheckinTrack(s string) (CheckinTrack, error) {
	switch t := CheckinTrack(strings.ToLower(strings.TrimSpace(s))); t {
	case CheckinData, CheckinLang, CheckinSoft:
		return t, nil
	}
	return "", WrapError("shared", "ParseCheckinTrack", ErrValidation,
		fmt.Sprintf("track must be one of data, lang, soft; got %q", s), ErrInvalidInput)
}

// Column returns the daily_checkins flag column for the track.
func (t CheckinTrack) Column() string {
	return string(t) + "_task"
}

// ═══════════════════════════════════════════════════════════════════════════
// LocalDate
// ═══════════════════════════════════════════════════════════════════════════

// LocalDateLayout is the wire format of a calendar date.
const LocalDateLayout = "2006-01-02"

// LocalDate is a calendar day already resolved in the learner's time zone.
// It carries no zone: the caller decides what "today" is.
type LocalDate struct {
	t time.Time
}

// ParseLocalDate parses YYYY-MM-DD.
func ParseLocalDate(s string) (LocalDate, error) {
	t, err := time.Parse(LocalDateLayout, strings.TrimSpace(s))
	if err != nil {
		return LocalDate{}, WrapError("shared", "ParseLocalDate", ErrValidation,
			fmt.Sprintf("date must be YYYY-MM-DD; got %q", s), ErrInvalidFormat)
	}
	return LocalDate{t: t}, nil
}

// MustLocalDate is ParseLocalDate for constants and tests.
func MustLocalDate(s string) LocalDate {
	d, err := ParseLocalDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// LocalDateOf truncates t to its calendar day in t's own location.
func LocalDateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d LocalDate) String() string  { return d.t.Format(LocalDateLayout) }
func (d LocalDate) Time() time.Time { return d.t }
func (d LocalDate) IsZero() bool    { return d.t.IsZero() }

// AddDays returns the date n days later (n may be negative).
func (d LocalDate) AddDays(n int) LocalDate {
	return LocalDate{t: d.t.AddDate(0, 0, n)}
}

// Equal reports whether both dates are the same day.
func (d LocalDate) Equal(o LocalDate) bool { return d.t.Equal(o.t) }

// ═══════════════════════════════════════════════════════════════════════════
// Percent
// ═══════════════════════════════════════════════════════════════════════════

// Percent is a progress value in [0, 100].
type Percent float64

// Ratio returns num/den as a percent, 0 when den is 0. The result is clamped
// into [0, 100].
func Ratio(num, den int) Percent {
	if den <= 0 || num <= 0 {
		return 0
	}
	return ClampPercent(float64(num) / float64(den) * 100)
}

// ClampPercent clamps v into [0, 100]; NaN becomes 0.
func ClampPercent(v float64) Percent {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return Percent(v)
}

// Round2 rounds to two decimals for display.
func (p Percent) Round2() float64 {
	return math.Round(float64(p)*100) / 100
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination
// ═══════════════════════════════════════════════════════════════════════════

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// NormalizeLimit maps non-positive limits to the default and caps large ones.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
