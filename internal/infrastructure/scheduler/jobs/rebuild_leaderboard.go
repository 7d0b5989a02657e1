// Package jobs contains the worker's periodic jobs.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/application/query"
	"github.com/tracks-academy/progress-ledger/internal/domain/leaderboard"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/pkg/circuitbreaker"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// Полностью пересобирает кеш лидерборда из PostgreSQL. Закрывает пропуски,
// оставшиеся после сбоев Redis или открытого circuit breaker.
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardConfig configures RebuildLeaderboardJob.
type RebuildLeaderboardConfig struct {
	// MaxEntries bounds how many ranked learners are loaded.
	MaxEntries int

	// Timeout is the maximum duration for one rebuild.
	Timeout time.Duration
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		MaxEntries: 100_000,
		Timeout:    2 * time.Minute,
	}
}

// RebuildStats describes the last run.
type RebuildStats struct {
	Entries    int
	Duration   time.Duration
	FinishedAt time.Time
}

// RebuildLeaderboardJob rewrites the leaderboard cache from the store.
type RebuildLeaderboardJob struct {
	learners learner.Repository
	cache    leaderboard.Cache
	breaker  *circuitbreaker.CircuitBreaker
	log      *logger.Logger
	config   RebuildLeaderboardConfig

	last atomic.Pointer[RebuildStats]
}

// RebuildLeaderboardJobName identifies the job in the scheduler.
const RebuildLeaderboardJobName = "rebuild_leaderboard"

// NewRebuildLeaderboardJob creates the job. breaker may be nil.
func NewRebuildLeaderboardJob(
	learners learner.Repository,
	cache leaderboard.Cache,
	breaker *circuitbreaker.CircuitBreaker,
	log *logger.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if log == nil {
		log = logger.Nop()
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultRebuildLeaderboardConfig().MaxEntries
	}
	return &RebuildLeaderboardJob{
		learners: learners,
		cache:    cache,
		breaker:  breaker,
		log:      log.With(logger.Component("rebuild_leaderboard")),
		config:   config,
	}
}

func (j *RebuildLeaderboardJob) Name() string { return RebuildLeaderboardJobName }

func (j *RebuildLeaderboardJob) Description() string {
	return "Rewrites the leaderboard cache from ranked learners in the store"
}

// Run executes the rebuild.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	started := time.Now()
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	ranked, err := j.learners.ListRanked(ctx, j.config.MaxEntries)
	if err != nil {
		return fmt.Errorf("rebuild_leaderboard: load learners: %w", err)
	}
	entries := make([]leaderboard.Entry, 0, len(ranked))
	for _, l := range ranked {
		entries = append(entries, query.EntryFromLearner(l))
	}

	write := func(ctx context.Context) error { return j.cache.Rebuild(ctx, entries) }
	if j.breaker != nil {
		// Rebuild также служит пробой для half-open состояния.
		err = j.breaker.Execute(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return fmt.Errorf("rebuild_leaderboard: write cache: %w", err)
	}

	stats := &RebuildStats{Entries: len(entries), Duration: time.Since(started), FinishedAt: time.Now()}
	j.last.Store(stats)
	j.log.Info("leaderboard rebuilt", logger.Int("entries", stats.Entries), logger.Latency(stats.Duration))
	return nil
}

// LastStats returns the stats of the last successful run, or nil.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	return j.last.Load()
}
