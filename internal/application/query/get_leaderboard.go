package query

import (
	"context"
	"errors"

	"github.com/tracks-academy/progress-ledger/internal/domain/leaderboard"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/pkg/circuitbreaker"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
	"github.com/tracks-academy/progress-ledger/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Топ учащихся. Сначала Redis (через circuit breaker), при сбое или
// холодном кеше читаем из PostgreSQL.
// ══════════════════════════════════════════════════════════════════════════════

// Source values reported in GetLeaderboardResult.
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// GetLeaderboardQuery holds the request parameters.
type GetLeaderboardQuery struct {
	// Limit - количество записей (по умолчанию 50, максимум 200).
	Limit int
}

// LeaderboardEntryDTO is one leaderboard row.
type LeaderboardEntryDTO struct {
	Rank       int    `json:"rank"`
	LearnerID  string `json:"learner_id"`
	FullName   string `json:"full_name"`
	XPTotal    int    `json:"xp_total"`
	StreakDays int    `json:"streak_days"`
}

// GetLeaderboardResult holds the ranked rows.
type GetLeaderboardResult struct {
	Entries []LeaderboardEntryDTO `json:"entries"`
	Source  string                `json:"source"`
}

// GetLeaderboardHandler handles GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	learners learner.Repository
	cache    leaderboard.Cache
	breaker  *circuitbreaker.CircuitBreaker
	log      *logger.Logger
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler. cache and
// breaker may be nil, in which case every read goes to the store.
func NewGetLeaderboardHandler(
	learners learner.Repository,
	cache leaderboard.Cache,
	breaker *circuitbreaker.CircuitBreaker,
	log *logger.Logger,
) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{learners: learners, cache: cache, breaker: breaker, log: log}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	limit := shared.NormalizeLimit(q.Limit)

	if entries, ok := h.fromCache(ctx, limit); ok {
		return &GetLeaderboardResult{Entries: toLeaderboardDTOs(entries), Source: SourceCache}, nil
	}

	ls, err := h.learners.ListRanked(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]leaderboard.Entry, 0, len(ls))
	for _, l := range ls {
		entries = append(entries, EntryFromLearner(l))
	}
	return &GetLeaderboardResult{Entries: toLeaderboardDTOs(leaderboard.RankEntries(entries)), Source: SourceStore}, nil
}

func (h *GetLeaderboardHandler) fromCache(ctx context.Context, limit int) ([]leaderboard.Entry, bool) {
	if h.cache == nil {
		return nil, false
	}
	var (
		entries []leaderboard.Entry
		cold    bool
	)
	read := func(ctx context.Context) error {
		return retry.CacheRetrier().Do(ctx, func(ctx context.Context) error {
			var err error
			entries, err = h.cache.Top(ctx, limit)
			// Холодный кеш - не сбой Redis, breaker его не считает.
			if errors.Is(err, leaderboard.ErrCold) {
				cold = true
				return nil
			}
			return err
		})
	}

	var err error
	if h.breaker != nil {
		err = h.breaker.ExecuteWithFallback(ctx, read, func(open error) error {
			// Цепь разомкнута: Redis не трогаем, молча идём в хранилище.
			h.log.Debug("leaderboard cache circuit open", logger.String("state", h.breaker.State().String()))
			return open
		})
	} else {
		err = read(ctx)
	}
	if err != nil {
		if !errors.Is(err, circuitbreaker.ErrCircuitOpen) && !errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			h.log.Warn("leaderboard cache unavailable, reading from store", logger.Err(err))
		}
		return nil, false
	}
	if cold {
		h.log.Debug("leaderboard cache is cold, reading from store")
		return nil, false
	}
	return entries, true
}

// EntryFromLearner converts a learner into a leaderboard entry without a rank.
func EntryFromLearner(l *learner.Learner) leaderboard.Entry {
	return leaderboard.Entry{
		LearnerID:  l.ID,
		FullName:   l.FullName,
		XPTotal:    l.XPTotal.Int(),
		StreakDays: l.StreakDays,
	}
}

func toLeaderboardDTOs(entries []leaderboard.Entry) []LeaderboardEntryDTO {
	out := make([]LeaderboardEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardEntryDTO{
			Rank:       int(e.Rank),
			LearnerID:  e.LearnerID,
			FullName:   e.FullName,
			XPTotal:    e.XPTotal,
			StreakDays: e.StreakDays,
		})
	}
	return out
}
