package scheduler

import (
	"fmt"
	"time"

	"github.com/tracks-academy/progress-ledger/pkg/timeutil"
)

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates an IntervalSchedule. Non-positive intervals fall back to one minute.
func Every(interval time.Duration) *IntervalSchedule {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IntervalSchedule{Interval: interval}
}

func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s *IntervalSchedule) String() string {
	return "@every " + s.Interval.String()
}

// DailySchedule runs a job once a day at HH:MM in the given location.
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Daily creates a DailySchedule. A nil location means UTC.
func Daily(hour, minute int, loc *time.Location) (*DailySchedule, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("scheduler: invalid daily time %02d:%02d", hour, minute)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DailySchedule{Hour: hour, Minute: minute, Location: loc}, nil
}

func (s *DailySchedule) Next(t time.Time) time.Time {
	return timeutil.NextRun(t, s.Hour, s.Minute, s.Location)
}

func (s *DailySchedule) String() string {
	return fmt.Sprintf("@daily %02d:%02d %s", s.Hour, s.Minute, s.Location)
}
