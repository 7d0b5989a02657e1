// Package memory is an in-process store used by tests and local runs.
//
// All tables share one lock, so a repository call that touches several
// tables (check-in, approval, toggle) is atomic the same way a Postgres
// transaction is.
package memory

import (
	"sync"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/badge"
	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/checkin"
	"github.com/tracks-academy/progress-ledger/internal/domain/custom"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/progress"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/domain/submission"
)

type completionKey struct{ learnerID, lessonID string }
type checkinKey struct {
	learnerID string
	date      string
}
type submissionKey struct{ learnerID, taskID string }
type customKey struct {
	kind custom.Kind
	id   string
}

// DB holds every table.
type DB struct {
	mu sync.RWMutex

	teams       map[string]struct{}
	learners    map[string]*learner.Learner
	lessons     map[string]*catalog.Lesson
	tasks       map[string]*catalog.Task
	completions map[completionKey]*progress.LessonCompletion
	checkins    map[checkinKey]*checkin.DailyCheckin
	submissions map[string]*submission.Submission
	subByPair   map[submissionKey]string
	customs     map[customKey]*custom.Item
	badges      map[string]badge.Badge
	held        map[string][]badge.Held
	xpEvents    []ledger.Event
	activities  []activity.Activity

	now func() time.Time
}

// Open returns an empty DB.
func Open() *DB {
	return &DB{
		teams:       make(map[string]struct{}),
		learners:    make(map[string]*learner.Learner),
		lessons:     make(map[string]*catalog.Lesson),
		tasks:       make(map[string]*catalog.Task),
		completions: make(map[completionKey]*progress.LessonCompletion),
		checkins:    make(map[checkinKey]*checkin.DailyCheckin),
		submissions: make(map[string]*submission.Submission),
		subByPair:   make(map[submissionKey]string),
		customs:     make(map[customKey]*custom.Item),
		badges:      make(map[string]badge.Badge),
		held:        make(map[string][]badge.Held),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock used for timestamps.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	db.now = now
	db.mu.Unlock()
}

// ──────────────────────────────────────────────────────────────────────────────
// Seeding
// ──────────────────────────────────────────────────────────────────────────────

func (db *DB) AddTeam(id string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.teams[id] = struct{}{}
}

// AddLearner stores a copy of l, assigning an ID when empty.
func (db *DB) AddLearner(l learner.Learner) string {
	db.mu.Lock()
	defer db.mu.Unlock()
	if l.ID == "" {
		l.ID = shared.NewID()
	}
	if l.Role == "" {
		l.Role = learner.RoleLearner
	}
	if l.Status == "" {
		l.Status = learner.StatusApproved
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = db.now()
		l.UpdatedAt = l.CreatedAt
	}
	db.learners[l.ID] = &l
	return l.ID
}

func (db *DB) AddLesson(l catalog.Lesson) string {
	db.mu.Lock()
	defer db.mu.Unlock()
	if l.ID == "" {
		l.ID = shared.NewID()
	}
	db.lessons[l.ID] = &l
	return l.ID
}

func (db *DB) AddTask(t catalog.Task) string {
	db.mu.Lock()
	defer db.mu.Unlock()
	if t.ID == "" {
		t.ID = shared.NewID()
	}
	db.tasks[t.ID] = &t
	return t.ID
}

func (db *DB) AddCustomItem(it custom.Item) string {
	db.mu.Lock()
	defer db.mu.Unlock()
	if it.ID == "" {
		it.ID = shared.NewID()
	}
	db.customs[customKey{it.Kind, it.ID}] = &it
	return it.ID
}

func (db *DB) AddBadge(b badge.Badge) string {
	db.mu.Lock()
	defer db.mu.Unlock()
	if b.ID == "" {
		b.ID = shared.NewID()
	}
	db.badges[b.ID] = b
	return b.ID
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers shared by repositories. Callers hold db.mu for writing.
// ──────────────────────────────────────────────────────────────────────────────

// applyXP mirrors the Postgres statement: clamp at zero and append the event.
func (db *DB) applyXP(entry ledger.Entry, now time.Time) (ledger.Event, error) {
	l, ok := db.learners[entry.LearnerID]
	if !ok {
		return ledger.Event{}, learner.ErrLearnerNotFound
	}
	ev := ledger.Apply(l.XPTotal, entry, now)
	l.XPTotal = ev.BalanceAfter
	l.UpdatedAt = now
	db.xpEvents = append(db.xpEvents, ev)
	return ev, nil
}

func (db *DB) insertActivity(a activity.Activity) {
	if a.ID == "" {
		a.ID = shared.NewID()
	}
	db.activities = append(db.activities, a)
}
