package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracks-academy/progress-ledger/internal/domain/leaderboard"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/memory"
	"github.com/tracks-academy/progress-ledger/pkg/circuitbreaker"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

func seedRanking(db *memory.DB) (top, second string) {
	top = db.AddLearner(learner.Learner{FullName: "A", XPTotal: 120, StreakDays: 1})
	second = db.AddLearner(learner.Learner{FullName: "B", XPTotal: 80, StreakDays: 9})
	db.AddLearner(learner.Learner{FullName: "C", XPTotal: 80, StreakDays: 2})
	db.AddLearner(learner.Learner{FullName: "Admin", XPTotal: 999, Role: learner.RoleAdmin})
	return top, second
}

func TestGetLeaderboard_FromStore(t *testing.T) {
	db := memory.Open()
	top, second := seedRanking(db)
	h := NewGetLeaderboardHandler(memory.NewLearnerRepository(db), nil, nil, logger.Nop())

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, SourceStore, res.Source)
	require.Len(t, res.Entries, 3, "admins are not ranked")
	assert.Equal(t, top, res.Entries[0].LearnerID)
	assert.Equal(t, second, res.Entries[1].LearnerID, "streak breaks XP ties")
	assert.Equal(t, []int{1, 2, 3}, []int{res.Entries[0].Rank, res.Entries[1].Rank, res.Entries[2].Rank})
}

func TestGetLeaderboard_FromCache(t *testing.T) {
	db := memory.Open()
	seedRanking(db)
	cache := memory.NewLeaderboardCache()
	require.NoError(t, cache.Rebuild(context.Background(), []leaderboard.Entry{{LearnerID: shared.NewID(), FullName: "Cached", XPTotal: 5}}))

	h := NewGetLeaderboardHandler(memory.NewLearnerRepository(db), cache, circuitbreaker.CacheBreaker(nil), logger.Nop())
	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "Cached", res.Entries[0].FullName)
	assert.Equal(t, 1, res.Entries[0].Rank)
}

func TestGetLeaderboard_FallsBackWhenCacheFails(t *testing.T) {
	db := memory.Open()
	top, _ := seedRanking(db)
	cache := memory.NewLeaderboardCache()
	cache.SetDown(true)
	breaker := circuitbreaker.New("leaderboard-test",
		circuitbreaker.WithFailureThreshold(2),
		circuitbreaker.WithTimeout(time.Hour),
	)

	h := NewGetLeaderboardHandler(memory.NewLearnerRepository(db), cache, breaker, logger.Nop())
	for i := 0; i < 4; i++ {
		res, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, SourceStore, res.Source)
		require.Len(t, res.Entries, 2)
		assert.Equal(t, top, res.Entries[0].LearnerID)
	}
	assert.True(t, breaker.IsOpen())
}

func TestGetLeaderboard_ColdCacheReadsStore(t *testing.T) {
	db := memory.Open()
	seedRanking(db)
	h := NewGetLeaderboardHandler(memory.NewLearnerRepository(db), memory.NewLeaderboardCache(), nil, logger.Nop())

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, SourceStore, res.Source)
	assert.Len(t, res.Entries, 3)
}

func TestGetLeaderboard_UpsertDoesNotWarmColdCache(t *testing.T) {
	ctx := context.Background()
	db := memory.Open()
	seedRanking(db)
	newcomer := db.AddLearner(learner.Learner{FullName: "New", XPTotal: 5})
	cache := memory.NewLeaderboardCache()

	// XP-событие нового учащегося до первого rebuild.
	require.NoError(t, cache.Upsert(ctx, leaderboard.Entry{LearnerID: newcomer, FullName: "New", XPTotal: 5}))

	h := NewGetLeaderboardHandler(memory.NewLearnerRepository(db), cache, circuitbreaker.CacheBreaker(nil), logger.Nop())
	res, err := h.Handle(ctx, GetLeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, SourceStore, res.Source)
	require.Len(t, res.Entries, 4)
	assert.Equal(t, newcomer, res.Entries[3].LearnerID)

	// После rebuild тот же запрос обслуживает кеш, включая последующие upsert.
	require.NoError(t, cache.Rebuild(ctx, []leaderboard.Entry{{LearnerID: newcomer, FullName: "New", XPTotal: 5}}))
	other := shared.NewID()
	require.NoError(t, cache.Upsert(ctx, leaderboard.Entry{LearnerID: other, FullName: "Late", XPTotal: 9}))

	res, err = h.Handle(ctx, GetLeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, other, res.Entries[0].LearnerID)
}

func TestGetLeaderboard_ColdCacheDoesNotTripBreaker(t *testing.T) {
	db := memory.Open()
	seedRanking(db)
	breaker := circuitbreaker.New("leaderboard-test", circuitbreaker.WithFailureThreshold(1), circuitbreaker.WithTimeout(time.Hour))
	h := NewGetLeaderboardHandler(memory.NewLearnerRepository(db), memory.NewLeaderboardCache(), breaker, logger.Nop())

	for i := 0; i < 3; i++ {
		res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
		require.NoError(t, err)
		assert.Equal(t, SourceStore, res.Source)
	}
	assert.True(t, breaker.IsClosed())
}
