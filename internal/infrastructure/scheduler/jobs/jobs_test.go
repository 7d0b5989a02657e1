package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracks-academy/progress-ledger/internal/application/query"
	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/leaderboard"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/progress"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/memory"
	"github.com/tracks-academy/progress-ledger/pkg/circuitbreaker"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

func TestRebuildLeaderboard_ReplacesCache(t *testing.T) {
	db := memory.Open()
	a := db.AddLearner(learner.Learner{FullName: "A", XPTotal: 40})
	b := db.AddLearner(learner.Learner{FullName: "B", XPTotal: 90})
	db.AddLearner(learner.Learner{FullName: "Admin", XPTotal: 1000, Role: learner.RoleAdmin})

	cache := memory.NewLeaderboardCache()
	ctx := context.Background()
	require.NoError(t, cache.Rebuild(ctx, []leaderboard.Entry{{LearnerID: "stale", XPTotal: 5000}}))

	job := NewRebuildLeaderboardJob(memory.NewLearnerRepository(db), cache, nil, logger.Nop(), DefaultRebuildLeaderboardConfig())
	require.NoError(t, job.Run(ctx))

	top, err := cache.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, b, top[0].LearnerID)
	assert.Equal(t, a, top[1].LearnerID)
	require.NotNil(t, job.LastStats())
	assert.Equal(t, 2, job.LastStats().Entries)
}

func TestRebuildLeaderboard_CacheDown(t *testing.T) {
	db := memory.Open()
	db.AddLearner(learner.Learner{FullName: "A", XPTotal: 40})
	cache := memory.NewLeaderboardCache()
	cache.SetDown(true)
	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(1), circuitbreaker.WithTimeout(time.Hour))

	job := NewRebuildLeaderboardJob(memory.NewLearnerRepository(db), cache, breaker, logger.Nop(), RebuildLeaderboardConfig{})
	assert.Error(t, job.Run(context.Background()))
	assert.True(t, breaker.IsOpen())
	assert.Nil(t, job.LastStats())

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

func TestReconcileProgress_WritesCachedColumns(t *testing.T) {
	db := memory.Open()
	cat := memory.NewCatalogRepository(db)
	subs := memory.NewSubmissionRepository(db)
	learners := memory.NewLearnerRepository(db)
	computer := query.NewGetProgressHandler(learners, cat, cat, subs)

	lessons := []string{
		db.AddLesson(catalog.Lesson{Title: "l1", Track: shared.TrackData, Published: true}),
		db.AddLesson(catalog.Lesson{Title: "l2", Track: shared.TrackData, Published: true, OrderIndex: 1}),
	}
	watcher := db.AddLearner(learner.Learner{FullName: "Watcher"})
	idle := db.AddLearner(learner.Learner{FullName: "Idle"})

	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, cat.UpsertLessonCompletion(context.Background(), progress.LessonCompletion{
		LearnerID: watcher, LessonID: lessons[0], Watched: true, WatchedAt: &now, UpdatedAt: now,
	}))

	job := NewReconcileProgressJob(learners, computer, logger.Nop(), ReconcileProgressConfig{BatchSize: 1, Concurrency: 2})
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(context.Background()))

	l, err := learners.GetByID(context.Background(), watcher)
	require.NoError(t, err)
	assert.Equal(t, 50.0, l.Cached.Data)
	assert.InDelta(t, 8.33, l.Cached.Overall, 0.001)
	require.NotNil(t, l.Cached.ComputedAt)
	assert.Equal(t, now, *l.Cached.ComputedAt)

	l, err = learners.GetByID(context.Background(), idle)
	require.NoError(t, err)
	assert.Zero(t, l.Cached.Overall)
	require.NotNil(t, l.Cached.ComputedAt)

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.EqualValues(t, 2, stats.Processed)
	assert.EqualValues(t, 2, stats.Updated)
}

type failingComputer struct{ failFor map[string]bool }

func (f failingComputer) ComputeFor(_ context.Context, l *learner.Learner) (progress.Report, error) {
	if f.failFor[l.ID] {
		return progress.Report{}, errors.New("catalog unavailable")
	}
	return progress.Report{}, nil
}

func TestReconcileProgress_FailureRatio(t *testing.T) {
	db := memory.Open()
	learners := memory.NewLearnerRepository(db)
	a := db.AddLearner(learner.Learner{FullName: "A"})
	b := db.AddLearner(learner.Learner{FullName: "B"})
	c := db.AddLearner(learner.Learner{FullName: "C"})

	// One of three failing stays under the threshold.
	job := NewReconcileProgressJob(learners, failingComputer{failFor: map[string]bool{a: true}}, logger.Nop(), ReconcileProgressConfig{})
	require.NoError(t, job.Run(context.Background()))
	assert.EqualValues(t, 1, job.LastStats().Failed)

	job = NewReconcileProgressJob(learners, failingComputer{failFor: map[string]bool{b: true, c: true}}, logger.Nop(), ReconcileProgressConfig{})
	err := job.Run(context.Background())
	assert.ErrorIs(t, err, ErrTooManyFailures)
}
