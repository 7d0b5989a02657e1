package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracks-academy/progress-ledger/internal/domain/checkin"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/memory"
)

func newCheckinHandler(f *fixture, enforceWindow bool) *PerformCheckinHandler {
	return NewPerformCheckinHandler(
		memory.NewCheckinRepository(f.db),
		f.bus,
		PerformCheckinConfig{Award: checkin.Award, EnforceDateWindow: enforceWindow, Now: f.clock},
		f.log,
	)
}

func TestPerformCheckin_SecondCallSameDayIsRefused(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	id := f.addLearner(shared.LevelBeginner, 0)
	h := newCheckinHandler(f, true)
	ctx := context.Background()

	cmd := PerformCheckinCommand{LearnerID: id, Track: "data", Date: "2024-01-01"}

	first, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 5, first.XPAwarded)
	assert.Equal(t, 5, first.XPTotal)
	assert.Equal(t, 1, first.StreakDays)
	assert.True(t, first.Checkin.DataTask)

	second, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, checkin.ReasonAlreadyCheckedIn, second.Reason)

	assert.Equal(t, 5, f.xp(t, id))
	assert.Len(t, f.bus.ofType(shared.EventCheckinPerformed), 1)
	assert.Len(t, f.bus.ofType(shared.EventXPChanged), 1)
}

func TestPerformCheckin_ConcurrentCallsAwardOnce(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	id := f.addLearner(shared.LevelBeginner, 0)
	h := newCheckinHandler(f, true)

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		refusals  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.Handle(context.Background(), PerformCheckinCommand{LearnerID: id, Track: "lang", Date: "2024-01-01"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Success {
				successes++
			} else {
				refusals++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, refusals)
	assert.Equal(t, 5, f.xp(t, id))

	dc, err := memory.NewCheckinRepository(f.db).Get(context.Background(), id, shared.MustLocalDate("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 5, dc.XPGenerated)
}

func TestPerformCheckin_EachTrackAwardsSeparately(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	id := f.addLearner(shared.LevelBeginner, 0)
	h := newCheckinHandler(f, true)
	ctx := context.Background()

	for _, track := range []string{"data", "lang", "soft"} {
		res, err := h.Handle(ctx, PerformCheckinCommand{LearnerID: id, Track: track, Date: "2024-01-01"})
		require.NoError(t, err)
		assert.True(t, res.Success, track)
		assert.Equal(t, 1, res.StreakDays, "streak counts days, not tracks")
	}
	assert.Equal(t, 15, f.xp(t, id))
}

func TestPerformCheckin_Streak(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	id := f.addLearner(shared.LevelBeginner, 0)
	h := newCheckinHandler(f, false)
	ctx := context.Background()

	steps := []struct {
		date   string
		streak int
	}{
		{"2024-01-01", 1},
		{"2024-01-02", 2},
		{"2024-01-03", 3},
		{"2024-01-05", 1}, // gap
		{"2024-01-06", 2},
	}
	for _, s := range steps {
		res, err := h.Handle(ctx, PerformCheckinCommand{LearnerID: id, Track: "soft", Date: s.date})
		require.NoError(t, err)
		require.True(t, res.Success, s.date)
		assert.Equal(t, s.streak, res.StreakDays, s.date)
	}
}

func TestPerformCheckin_Validation(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	id := f.addLearner(shared.LevelBeginner, 0)
	h := newCheckinHandler(f, true)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  PerformCheckinCommand
	}{
		{"bad track", PerformCheckinCommand{LearnerID: id, Track: "english", Date: "2024-01-01"}},
		{"bad date", PerformCheckinCommand{LearnerID: id, Track: "data", Date: "01/01/2024"}},
		{"bad learner id", PerformCheckinCommand{LearnerID: "nope", Track: "data", Date: "2024-01-01"}},
		{"date outside window", PerformCheckinCommand{LearnerID: id, Track: "data", Date: "2023-12-25"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(ctx, tt.cmd)
			assert.True(t, shared.IsValidation(err), "got %v", err)
		})
	}
	assert.Equal(t, 0, f.xp(t, id))
}

func TestPerformCheckin_UnknownLearner(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	h := newCheckinHandler(f, true)

	_, err := h.Handle(context.Background(), PerformCheckinCommand{
		LearnerID: shared.NewID(), Track: "data", Date: "2024-01-01",
	})
	assert.True(t, shared.IsNotFound(err))
}

func TestPerformCheckin_DefaultConfigAcceptsAnyWellFormedDate(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC))
	id := f.addLearner(shared.LevelBeginner, 0)

	cfg := DefaultPerformCheckinConfig()
	assert.False(t, cfg.EnforceDateWindow)
	cfg.Now = f.clock
	h := NewPerformCheckinHandler(memory.NewCheckinRepository(f.db), f.bus, cfg, f.log)

	res, err := h.Handle(context.Background(), PerformCheckinCommand{LearnerID: id, Track: "data", Date: "2024-01-01"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.XPAwarded)
	assert.Equal(t, 5, f.xp(t, id))
}
