package memory

import (
	"context"
	"sort"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/badge"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
)

type badgeRepository struct {
	db *DB
}

var _ badge.Repository = (*badgeRepository)(nil)

func NewBadgeRepository(db *DB) badge.Repository {
	return &badgeRepository{db: db}
}

func (repo *badgeRepository) ListAll(_ context.Context) ([]badge.Badge, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]badge.Badge, 0, len(repo.db.badges))
	for _, b := range repo.db.badges {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].XPRequired != out[j].XPRequired {
			return out[i].XPRequired < out[j].XPRequired
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (repo *badgeRepository) ListHeld(_ context.Context, learnerID string) ([]badge.Held, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	held := repo.db.held[learnerID]
	out := make([]badge.Held, len(held))
	copy(out, held)
	return out, nil
}

func (repo *badgeRepository) Award(_ context.Context, learnerID, badgeID string, now time.Time) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.learners[learnerID]; !ok {
		return false, learner.ErrLearnerNotFound
	}
	b, ok := repo.db.badges[badgeID]
	if !ok {
		return false, nil
	}
	for _, h := range repo.db.held[learnerID] {
		if h.ID == badgeID {
			return false, nil
		}
	}
	repo.db.held[learnerID] = append(repo.db.held[learnerID], badge.Held{Badge: b, EarnedAt: now})
	repo.db.insertActivity(activity.Activity{
		LearnerID:   learnerID,
		Type:        activity.TypeBadgeEarned,
		Description: activity.BadgeDescription(b.Name),
		RelatedID:   badgeID,
		CreatedAt:   now,
	})
	return true, nil
}
