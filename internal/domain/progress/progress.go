// Package progress computes learner progress from facts.
//
// Compute is pure: it never reads or writes storage and never trusts the
// cached progress columns on the learner row.
package progress

import (
	"context"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// Weights of the overall score.
const (
	TrackWeight = 0.5
	TaskWeight  = 0.5
)

// Snapshot is everything Compute needs. Lessons and Tasks may contain items
// not visible to Level; they are filtered again here.
type Snapshot struct {
	Level           shared.Level
	Lessons         []catalog.Lesson
	WatchedLessons  []string
	Tasks           []catalog.Task
	ApprovedTaskIDs []string
}

// Report is the computed progress.
type Report struct {
	PerTrack map[shared.Track]shared.Percent
	TaskPct  shared.Percent
	Overall  shared.Percent

	// Raw counts, useful for display.
	LessonsDone  map[shared.Track]int
	LessonsTotal map[shared.Track]int
	TasksDone    int
	TasksTotal   int
}

// Compute derives the report:
//
//	perTrack[t] = |watched ∩ visible(t)| / |visible(t)|
//	taskPct     = |approved ∩ visibleTasks| / |visibleTasks|
//	overall     = 0.5·mean(perTrack over fixed tracks) + 0.5·taskPct
//
// Every ratio with a zero denominator is 0.
func Compute(s Snapshot) Report {
	r := Report{
		PerTrack:     make(map[shared.Track]shared.Percent, len(shared.FixedTracks)),
		LessonsDone:  make(map[shared.Track]int, len(shared.FixedTracks)),
		LessonsTotal: make(map[shared.Track]int, len(shared.FixedTracks)),
	}

	watched := toSet(s.WatchedLessons)
	seen := make(map[string]struct{}, len(s.Lessons))
	for _, l := range s.Lessons {
		if !l.Track.IsFixed() || !l.VisibleTo(s.Level) {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		r.LessonsTotal[l.Track]++
		if _, ok := watched[l.ID]; ok {
			r.LessonsDone[l.Track]++
		}
	}

	var sum float64
	for _, t := range shared.FixedTracks {
		pct := shared.Ratio(r.LessonsDone[t], r.LessonsTotal[t])
		r.PerTrack[t] = pct
		sum += float64(pct)
	}

	approved := toSet(s.ApprovedTaskIDs)
	seen = make(map[string]struct{}, len(s.Tasks))
	for _, t := range s.Tasks {
		if !t.VisibleTo(s.Level) {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		r.TasksTotal++
		if _, ok := approved[t.ID]; ok {
			r.TasksDone++
		}
	}
	r.TaskPct = shared.Ratio(r.TasksDone, r.TasksTotal)

	mean := sum / float64(len(shared.FixedTracks))
	r.Overall = shared.ClampPercent(TrackWeight*mean + TaskWeight*float64(r.TaskPct))
	return r
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// ═══════════════════════════════════════════════════════════════════════════
// Lesson completion fact
// ═══════════════════════════════════════════════════════════════════════════

// LessonCompletion is the (learner, lesson) fact, upserted in place.
type LessonCompletion struct {
	LearnerID string
	LessonID  string
	Watched   bool
	WatchedAt *time.Time
	UpdatedAt time.Time
}

// CompletionRepository persists lesson completions.
type CompletionRepository interface {
	// UpsertLessonCompletion writes the fact keyed by (learner, lesson).
	// Last write wins.
	UpsertLessonCompletion(ctx context.Context, c LessonCompletion) error

	// ListWatchedLessonIDs returns lessons with watched=true for the learner.
	ListWatchedLessonIDs(ctx context.Context, learnerID string) ([]string, error)
}
