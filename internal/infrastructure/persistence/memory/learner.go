package memory

import (
	"context"
	"sort"

	"github.com/tracks-academy/progress-ledger/internal/domain/leaderboard"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
)

type learnerRepository struct {
	db *DB
}

var _ learner.Repository = (*learnerRepository)(nil)

func NewLearnerRepository(db *DB) learner.Repository {
	return &learnerRepository{db: db}
}

func (repo *learnerRepository) GetByID(_ context.Context, id string) (*learner.Learner, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	l, ok := repo.db.learners[id]
	if !ok {
		return nil, learner.ErrLearnerNotFound
	}
	cp := *l
	return &cp, nil
}

func (repo *learnerRepository) ListByTeam(_ context.Context, teamID string) ([]*learner.Learner, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, ok := repo.db.teams[teamID]; !ok {
		return nil, learner.ErrTeamNotFound
	}
	out := make([]*learner.Learner, 0)
	for _, l := range repo.db.learners {
		if l.TeamID != nil && *l.TeamID == teamID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortByRank(out)
	return out, nil
}

func (repo *learnerRepository) ListRanked(_ context.Context, limit int) ([]*learner.Learner, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]*learner.Learner, 0, len(repo.db.learners))
	for _, l := range repo.db.learners {
		if l.IsRanked() {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortByRank(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (repo *learnerRepository) ListIDsAfter(_ context.Context, afterID string, limit int) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0, len(repo.db.learners))
	for id := range repo.db.learners {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (repo *learnerRepository) SaveCachedProgress(_ context.Context, id string, p learner.CachedProgress) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l, ok := repo.db.learners[id]
	if !ok {
		return learner.ErrLearnerNotFound
	}
	l.Cached = p
	return nil
}

func sortByRank(ls []*learner.Learner) {
	sort.Slice(ls, func(i, j int) bool {
		return leaderboard.Less(
			leaderboard.Entry{LearnerID: ls[i].ID, XPTotal: ls[i].XPTotal.Int(), StreakDays: ls[i].StreakDays},
			leaderboard.Entry{LearnerID: ls[j].ID, XPTotal: ls[j].XPTotal.Int(), StreakDays: ls[j].StreakDays},
		)
	})
}
