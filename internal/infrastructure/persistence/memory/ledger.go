package memory

import (
	"context"
	"sort"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

type ledgerRepository struct {
	db *DB
}

var _ ledger.Repository = (*ledgerRepository)(nil)

func NewLedgerRepository(db *DB) ledger.Repository {
	return &ledgerRepository{db: db}
}

func (repo *ledgerRepository) Apply(_ context.Context, entry ledger.Entry) (ledger.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.db.applyXP(entry, repo.db.now())
}

func (repo *ledgerRepository) History(_ context.Context, learnerID string, limit int) ([]ledger.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	limit = shared.NormalizeLimit(limit)
	out := make([]ledger.Event, 0)
	// newest first: walk the append-only slice backwards
	for i := len(repo.db.xpEvents) - 1; i >= 0 && len(out) < limit; i-- {
		if ev := repo.db.xpEvents[i]; ev.LearnerID == learnerID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) ListRecent(_ context.Context, learnerID string, limit int) ([]activity.Activity, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	limit = shared.NormalizeLimit(limit)
	out := make([]activity.Activity, 0)
	for _, a := range repo.db.activities {
		if a.LearnerID == learnerID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
