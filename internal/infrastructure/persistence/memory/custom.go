package memory

import (
	"context"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/custom"
)

type customRepository struct {
	db *DB
}

var _ custom.Repository = (*customRepository)(nil)

func NewCustomRepository(db *DB) custom.Repository {
	return &customRepository{db: db}
}

func (repo *customRepository) Get(_ context.Context, kind custom.Kind, id string) (*custom.Item, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	it, ok := repo.db.customs[customKey{kind, id}]
	if !ok {
		return nil, custom.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (repo *customRepository) SetCompleted(
	_ context.Context, kind custom.Kind, id string, completed bool, now time.Time,
) (custom.ToggleOutcome, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	it, ok := repo.db.customs[customKey{kind, id}]
	if !ok {
		return custom.ToggleOutcome{}, custom.ErrItemNotFound
	}
	if it.Completed == completed {
		return custom.ToggleOutcome{Item: *it}, nil
	}

	out := custom.ToggleOutcome{Changed: true}
	if entry, hasXP := it.XPEntry(completed); hasXP {
		ev, err := repo.db.applyXP(entry, now)
		if err != nil {
			return custom.ToggleOutcome{}, err
		}
		out.XP = &ev
	}

	it.Completed = completed
	it.CompletedAt = nil
	if completed {
		it.CompletedAt = &now
	}
	out.Item = *it

	if completed && kind == custom.KindTask {
		repo.db.insertActivity(activity.Activity{
			LearnerID:   it.LearnerID,
			Type:        activity.TypeCustomTask,
			Description: activity.CustomTaskDescription(it.Title),
			XPEarned:    it.XPValue,
			RelatedID:   it.ID,
			CreatedAt:   now,
		})
	}
	return out, nil
}
