// Package ledger models XP accounting.
//
// A learner's xp_total is the running sum of applied deltas. Debits clamp
// at zero instead of going negative, so an undo after a clamped debit does
// not restore the exact prior balance. Every change, clamped or not, is kept
// in an append-only event log with both the requested and applied delta.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// Source attributes an XP change.
type Source string

const (
	SourceTaskApproval    Source = "task_approval"
	SourceCheckin         Source = "checkin"
	SourceCustomTask      Source = "custom_task"
	SourceAdminAdjustment Source = "admin_adjustment"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceTaskApproval, SourceCheckin, SourceCustomTask, SourceAdminAdjustment:
		return true
	}
	return false
}

// Entry is a requested XP change, not yet applied.
type Entry struct {
	LearnerID string
	Source    Source
	Delta     int
	RelatedID string
}

// NewCredit builds a positive entry. amount must be > 0.
func NewCredit(learnerID string, amount int, source Source, relatedID string) (Entry, error) {
	if err := check("Credit", amount, source); err != nil {
		return Entry{}, err
	}
	return Entry{LearnerID: learnerID, Source: source, Delta: amount, RelatedID: relatedID}, nil
}

// NewDebit builds a negative entry. amount must be > 0.
func NewDebit(learnerID string, amount int, source Source, relatedID string) (Entry, error) {
	if err := check("Debit", amount, source); err != nil {
		return Entry{}, err
	}
	return Entry{LearnerID: learnerID, Source: source, Delta: -amount, RelatedID: relatedID}, nil
}

func check(op string, amount int, source Source) error {
	if amount <= 0 {
		return shared.WrapError("ledger", op, shared.ErrValidation,
			fmt.Sprintf("amount must be positive; got %d", amount), shared.ErrNonPositive)
	}
	if !source.IsValid() {
		return shared.Validation("ledger", op, fmt.Sprintf("unknown source %q", source))
	}
	return nil
}

// Event is an applied XP change as stored in the log.
type Event struct {
	ID             string
	LearnerID      string
	Source         Source
	RequestedDelta int
	AppliedDelta   int
	BalanceAfter   shared.XP
	RelatedID      string
	CreatedAt      time.Time
}

// Clamped reports whether the floor cut the requested delta.
func (e Event) Clamped() bool {
	return e.AppliedDelta != e.RequestedDelta
}

// Apply computes the event produced by applying entry to balance.
// Stores call this (or its SQL equivalent) inside their transaction.
func Apply(balance shared.XP, entry Entry, now time.Time) Event {
	next, applied := balance.Apply(entry.Delta)
	return Event{
		ID:             shared.NewID(),
		LearnerID:      entry.LearnerID,
		Source:         entry.Source,
		RequestedDelta: entry.Delta,
		AppliedDelta:   applied,
		BalanceAfter:   next,
		RelatedID:      entry.RelatedID,
		CreatedAt:      now,
	}
}

// Repository persists XP changes.
type Repository interface {
	// Apply atomically adds entry.Delta to xp_total (clamped at 0) and appends
	// the event. Returns learner.ErrLearnerNotFound for an unknown learner.
	Apply(ctx context.Context, entry Entry) (Event, error)

	// History returns the newest events first.
	History(ctx context.Context, learnerID string, limit int) ([]Event, error)
}
