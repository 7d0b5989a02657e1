// Package custom models learner-scoped items assigned outside the catalog.
package custom

import (
	"context"
	"fmt"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// Kind distinguishes custom lessons from custom tasks.
type Kind string

const (
	KindLesson Kind = "lesson"
	KindTask   Kind = "task"
)

// ParseKind accepts singular or plural forms ("task", "tasks").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "lesson", "lessons":
		return KindLesson, nil
	case "task", "tasks":
		return KindTask, nil
	}
	return "", shared.Validation("custom", "ParseKind", fmt.Sprintf("kind must be lesson or task; got %q", s))
}

// Item is a custom lesson or task. Only tasks carry XP.
type Item struct {
	ID          string
	LearnerID   string
	Kind        Kind
	Title       string
	Track       shared.Track
	XPValue     int
	Completed   bool
	CompletedAt *time.Time
}

// XPEntry returns the ledger entry for moving the item to completed, or
// ok=false when the change carries no XP.
func (i Item) XPEntry(completed bool) (entry ledger.Entry, ok bool) {
	if i.Kind != KindTask || i.XPValue <= 0 || i.Completed == completed {
		return ledger.Entry{}, false
	}
	var err error
	if completed {
		entry, err = ledger.NewCredit(i.LearnerID, i.XPValue, ledger.SourceCustomTask, i.ID)
	} else {
		entry, err = ledger.NewDebit(i.LearnerID, i.XPValue, ledger.SourceCustomTask, i.ID)
	}
	return entry, err == nil
}

// ToggleOutcome is what the store reports for one toggle.
type ToggleOutcome struct {
	Item    Item
	Changed bool
	XP      *ledger.Event
}

var ErrItemNotFound = shared.NotFound("custom", "Get", "custom item not found")

// Repository persists custom items.
type Repository interface {
	// Get returns ErrItemNotFound when absent.
	Get(ctx context.Context, kind Kind, id string) (*Item, error)

	// SetCompleted sets the flag if it differs and, for tasks, applies the
	// XP entry from Item.XPEntry in the same transaction.
	SetCompleted(ctx context.Context, kind Kind, id string, completed bool, now time.Time) (ToggleOutcome, error)
}
