package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/tracks-academy/progress-ledger/internal/domain/leaderboard"
)

// ErrCacheDown is returned by a LeaderboardCache marked unavailable.
var ErrCacheDown = errors.New("memory: leaderboard cache unavailable")

// LeaderboardCache is a map-backed leaderboard.Cache.
type LeaderboardCache struct {
	mu      sync.Mutex
	entries map[string]leaderboard.Entry
	built   bool
	down    bool
}

var _ leaderboard.Cache = (*LeaderboardCache)(nil)

func NewLeaderboardCache() *LeaderboardCache {
	return &LeaderboardCache{entries: make(map[string]leaderboard.Entry)}
}

// SetDown makes every call fail with ErrCacheDown, to exercise fallbacks.
func (c *LeaderboardCache) SetDown(down bool) {
	c.mu.Lock()
	c.down = down
	c.mu.Unlock()
}

func (c *LeaderboardCache) Upsert(_ context.Context, e leaderboard.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return ErrCacheDown
	}
	// холодный кеш не прогреваем по одному учащемуся
	if c.built {
		c.entries[e.LearnerID] = e
	}
	return nil
}

func (c *LeaderboardCache) Top(_ context.Context, limit int) ([]leaderboard.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, ErrCacheDown
	}
	if !c.built {
		return nil, leaderboard.ErrCold
	}
	out := make([]leaderboard.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	out = leaderboard.RankEntries(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *LeaderboardCache) Rebuild(_ context.Context, entries []leaderboard.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return ErrCacheDown
	}
	c.entries = make(map[string]leaderboard.Entry, len(entries))
	for _, e := range entries {
		c.entries[e.LearnerID] = e
	}
	c.built = true
	return nil
}
