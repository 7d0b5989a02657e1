// Package catalog holds the admin-managed lesson and task catalog.
// The catalog is read-mostly from this service's point of view.
package catalog

import (
	"context"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// Lesson is a published unit of content in a track.
type Lesson struct {
	ID           string
	Title        string
	Track        shared.Track
	Level        *shared.Level
	EnglishLevel *shared.EnglishLevel // descriptive only, not used for visibility
	Published    bool
	OrderIndex   int
}

// VisibleTo reports whether the lesson counts for a learner at level.
func (l Lesson) VisibleTo(level shared.Level) bool {
	return l.Published && shared.VisibleTo(l.Level, level)
}

// Task is an assignment that awards XP once approved.
type Task struct {
	ID        string
	Title     string
	Track     shared.Track
	XP        int
	Level     *shared.Level
	Published bool
	Deadline  *time.Time
}

// VisibleTo reports whether the task counts for a learner at level.
func (t Task) VisibleTo(level shared.Level) bool {
	return t.Published && shared.VisibleTo(t.Level, level)
}

var (
	ErrLessonNotFound = shared.NotFound("catalog", "GetLesson", "lesson not found")
	ErrTaskNotFound   = shared.NotFound("catalog", "GetTask", "task not found")
)

// Repository reads the catalog.
type Repository interface {
	// GetLesson returns ErrLessonNotFound when absent.
	GetLesson(ctx context.Context, id string) (*Lesson, error)

	// GetTask returns ErrTaskNotFound when absent.
	GetTask(ctx context.Context, id string) (*Task, error)

	// ListVisibleLessons returns published lessons with no level or the given level.
	ListVisibleLessons(ctx context.Context, level shared.Level) ([]Lesson, error)

	// ListVisibleTasks returns published tasks with no level or the given level.
	ListVisibleTasks(ctx context.Context, level shared.Level) ([]Task, error)
}
