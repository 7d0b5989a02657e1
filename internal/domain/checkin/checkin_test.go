package checkin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

func TestDailyCheckin_SetOnlyOnce(t *testing.T) {
	var d DailyCheckin

	assert.True(t, d.Set(shared.CheckinLang))
	assert.False(t, d.Set(shared.CheckinLang))
	assert.True(t, d.Flag(shared.CheckinLang))
	assert.False(t, d.Flag(shared.CheckinData))

	assert.True(t, d.Set(shared.CheckinData))
	assert.True(t, d.Set(shared.CheckinSoft))
	assert.False(t, d.Set(shared.CheckinTrack("english")))
}

func TestNextStreak(t *testing.T) {
	day := shared.MustLocalDate("2024-03-10")

	tests := []struct {
		name    string
		prev    shared.LocalDate
		current int
		want    int
	}{
		{"first ever", shared.LocalDate{}, 0, 1},
		{"yesterday continues", day.AddDays(-1), 4, 5},
		{"gap resets", day.AddDays(-2), 4, 1},
		{"yesterday with zero streak", day.AddDays(-1), 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStreak(tt.prev, tt.current, day))
		})
	}
}
