package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankEntries(t *testing.T) {
	entries := RankEntries([]Entry{
		{LearnerID: "c", XPTotal: 40, StreakDays: 1},
		{LearnerID: "b", XPTotal: 40, StreakDays: 3},
		{LearnerID: "a", XPTotal: 40, StreakDays: 1},
		{LearnerID: "d", XPTotal: 90},
	})

	var order []string
	for i, e := range entries {
		order = append(order, e.LearnerID)
		assert.Equal(t, Rank(i+1), e.Rank)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, order)
}
