// Package leaderboard содержит модель рейтинга учащихся.
// Рейтинг строится по xp_total DESC, затем streak_days DESC; админы не участвуют.
package leaderboard

import (
	"context"
	"errors"
	"sort"
)

// ErrCold возвращается Top, пока рейтинг ни разу не собирался через Rebuild
// (новый Redis, FLUSHALL, рестарт без persistence). Холодный кеш читать нельзя:
// в нём только учащиеся, чей XP менялся после старта.
var ErrCold = errors.New("leaderboard cache is cold")

// Rank начинается с 1.
type Rank int

// Entry - строка рейтинга.
type Entry struct {
	LearnerID  string
	FullName   string
	XPTotal    int
	StreakDays int
	Rank       Rank
}

// Less задаёт порядок рейтинга. При равенстве XP и streak порядок по ID,
// чтобы ранги были детерминированы.
func Less(a, b Entry) bool {
	if a.XPTotal != b.XPTotal {
		return a.XPTotal > b.XPTotal
	}
	if a.StreakDays != b.StreakDays {
		return a.StreakDays > b.StreakDays
	}
	return a.LearnerID < b.LearnerID
}

// RankEntries сортирует записи и проставляет ранги 1..n.
func RankEntries(entries []Entry) []Entry {
	sort.SliceStable(entries, func(i, j int) bool { return Less(entries[i], entries[j]) })
	for i := range entries {
		entries[i].Rank = Rank(i + 1)
	}
	return entries
}

// Cache - быстрый read-model рейтинга (Redis sorted set).
type Cache interface {
	// Upsert обновляет позицию учащегося. На холодном кеше ничего не пишет.
	Upsert(ctx context.Context, e Entry) error

	// Top возвращает первые limit записей с проставленными рангами,
	// или ErrCold, если Rebuild ещё не выполнялся.
	Top(ctx context.Context, limit int) ([]Entry, error)

	// Rebuild атомарно заменяет весь рейтинг и помечает кеш собранным.
	Rebuild(ctx context.Context, entries []Entry) error
}
