package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tracks-academy/progress-ledger/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
//
//   - Sorted set "leaderboard:rank"  learnerID -> score(xp, streak)
//   - Hash       "leaderboard:info"  learnerID -> entryInfo JSON
//   - String     "leaderboard:built" выставляется Rebuild; без него кеш холодный
//
// Ранги вычисляются при чтении, поэтому Upsert одного учащегося стоит O(log N).
// ══════════════════════════════════════════════════════════════════════════════

const (
	keyRank  = "leaderboard:rank"
	keyInfo  = "leaderboard:info"
	keyBuilt = "leaderboard:built"

	// streakSlots bounds the streak component of the score. XP up to ~9e9
	// still fits exactly in a float64 mantissa.
	streakSlots = 1_000_000
)

// entryInfo is the hash payload.
type entryInfo struct {
	FullName   string `json:"full_name"`
	XPTotal    int    `json:"xp_total"`
	StreakDays int    `json:"streak_days"`
}

// upsertScript пишет позицию только в собранный рейтинг. Проверка маркера и
// запись выполняются атомарно, поэтому Upsert не может "прогреть" пустой кеш
// одним учащимся.
//
//	KEYS: built, rank, info    ARGV: score, learnerID, info JSON
var upsertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[3], ARGV[2], ARGV[3])
return 1
`)

// LeaderboardCache implements leaderboard.Cache on a Redis sorted set.
type LeaderboardCache struct {
	cache *Cache
}

var _ leaderboard.Cache = (*LeaderboardCache)(nil)

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// Score orders by xp_total DESC, then streak_days DESC under ZREVRANGE.
func Score(xp, streak int) float64 {
	if streak < 0 {
		streak = 0
	}
	if streak >= streakSlots {
		streak = streakSlots - 1
	}
	return float64(xp)*streakSlots + float64(streak)
}

// Upsert writes one learner's position.
func (l *LeaderboardCache) Upsert(ctx context.Context, e leaderboard.Entry) error {
	data, err := json.Marshal(entryInfo{FullName: e.FullName, XPTotal: e.XPTotal, StreakDays: e.StreakDays})
	if err != nil {
		return fmt.Errorf("leaderboard_cache: marshal entry: %w", err)
	}

	keys := []string{l.cache.Key(keyBuilt), l.cache.Key(keyRank), l.cache.Key(keyInfo)}
	score := strconv.FormatFloat(Score(e.XPTotal, e.StreakDays), 'f', -1, 64)
	if err := upsertScript.Run(ctx, l.cache.Client(), keys, score, e.LearnerID, string(data)).Err(); err != nil {
		return fmt.Errorf("leaderboard_cache: upsert: %w", err)
	}
	return nil
}

// Top returns the first limit entries with ranks 1..n.
func (l *LeaderboardCache) Top(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	client := l.cache.Client()
	rankKey := l.cache.Key(keyRank)

	built, err := client.Exists(ctx, l.cache.Key(keyBuilt)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: built marker: %w", err)
	}
	if built == 0 {
		return nil, leaderboard.ErrCold
	}

	zs, err := client.ZRevRangeWithScores(ctx, rankKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: range: %w", err)
	}
	if len(zs) == 0 {
		return []leaderboard.Entry{}, nil
	}

	// Redis breaks score ties by member in reverse order; pull every member
	// tied with the last row so the id tie-break can be applied here.
	if len(zs) == limit {
		last := strconv.FormatFloat(zs[len(zs)-1].Score, 'f', -1, 64)
		tied, err := client.ZRangeByScoreWithScores(ctx, rankKey, &redis.ZRangeBy{Min: last, Max: last}).Result()
		if err != nil {
			return nil, fmt.Errorf("leaderboard_cache: ties: %w", err)
		}
		zs = mergeTies(zs, tied)
	}

	ids := make([]string, 0, len(zs))
	for _, z := range zs {
		ids = append(ids, memberID(z.Member))
	}
	infos, err := client.HMGet(ctx, l.cache.Key(keyInfo), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: info: %w", err)
	}

	entries := make([]leaderboard.Entry, 0, len(ids))
	for i, id := range ids {
		entries = append(entries, decodeEntry(id, zs[i].Score, infos[i]))
	}
	entries = leaderboard.RankEntries(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Rebuild replaces the whole leaderboard and sets the built marker in one
// MULTI/EXEC.
func (l *LeaderboardCache) Rebuild(ctx context.Context, entries []leaderboard.Entry) error {
	rankKey := l.cache.Key(keyRank)
	infoKey := l.cache.Key(keyInfo)

	pipe := l.cache.Client().TxPipeline()
	pipe.Del(ctx, rankKey, infoKey)

	if len(entries) > 0 {
		zMembers := make([]redis.Z, 0, len(entries))
		hashData := make(map[string]interface{}, len(entries))
		for _, e := range entries {
			if e.LearnerID == "" {
				continue
			}
			data, err := json.Marshal(entryInfo{FullName: e.FullName, XPTotal: e.XPTotal, StreakDays: e.StreakDays})
			if err != nil {
				return fmt.Errorf("leaderboard_cache: marshal entry: %w", err)
			}
			zMembers = append(zMembers, redis.Z{Score: Score(e.XPTotal, e.StreakDays), Member: e.LearnerID})
			hashData[e.LearnerID] = data
		}
		if len(zMembers) > 0 {
			pipe.ZAdd(ctx, rankKey, zMembers...)
			pipe.HSet(ctx, infoKey, hashData)
		}
	}
	pipe.Set(ctx, l.cache.Key(keyBuilt), "1", 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: rebuild: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

func memberID(m interface{}) string {
	if s, ok := m.(string); ok {
		return s
	}
	return fmt.Sprint(m)
}

// mergeTies appends members of tied that are not already in zs.
func mergeTies(zs, tied []redis.Z) []redis.Z {
	seen := make(map[string]struct{}, len(zs))
	for _, z := range zs {
		seen[memberID(z.Member)] = struct{}{}
	}
	for _, z := range tied {
		if _, ok := seen[memberID(z.Member)]; !ok {
			zs = append(zs, z)
		}
	}
	return zs
}

// decodeEntry builds an entry from the hash payload, falling back to the
// score when the payload is missing or corrupt.
func decodeEntry(id string, score float64, raw interface{}) leaderboard.Entry {
	e := leaderboard.Entry{LearnerID: id}
	if s, ok := raw.(string); ok {
		var info entryInfo
		if json.Unmarshal([]byte(s), &info) == nil {
			e.FullName = info.FullName
			e.XPTotal = info.XPTotal
			e.StreakDays = info.StreakDays
			return e
		}
	}
	e.XPTotal = int(math.Floor(score / streakSlots))
	e.StreakDays = int(score - float64(e.XPTotal)*streakSlots)
	return e
}
