// Package activity contains the learner activity feed.
// Rows are written by the stores inside the same transaction as the fact
// they describe, so the feed never shows an XP gain that was rolled back.
package activity

import (
	"context"
	"fmt"
	"time"
)

// Type of an activity row.
type Type string

const (
	TypeCheckin       Type = "checkin"
	TypeTaskApproved  Type = "task_approved"
	TypeCustomTask    Type = "custom_task_completed"
	TypeLessonWatched Type = "lesson_watched"
	TypeBadgeEarned   Type = "badge_earned"
)

// Activity is one feed row.
type Activity struct {
	ID          string
	LearnerID   string
	Type        Type
	Description string
	XPEarned    int
	RelatedID   string
	CreatedAt   time.Time
}

// Descriptions used by the stores. Kept here so both store implementations
// write identical text.
func CheckinDescription(track string) string {
	return fmt.Sprintf("daily check-in: %s", track)
}

func TaskApprovedDescription(taskTitle string) string {
	return fmt.Sprintf("task approved: %s", taskTitle)
}

func CustomTaskDescription(title string) string {
	return fmt.Sprintf("custom task completed: %s", title)
}

func BadgeDescription(name string) string {
	return fmt.Sprintf("badge earned: %s", name)
}

// Repository reads the feed.
type Repository interface {
	// ListRecent returns the newest activities first.
	ListRecent(ctx context.Context, learnerID string, limit int) ([]Activity, error)
}
