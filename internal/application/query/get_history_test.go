package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/memory"
)

// steppingClock сдвигается на минуту при каждом вызове.
func steppingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func TestGetXPHistory_NewestFirstWithClamp(t *testing.T) {
	ctx := context.Background()
	db := memory.Open()
	db.SetClock(steppingClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))
	id := db.AddLearner(learner.Learner{FullName: "Mariam"})
	repo := memory.NewLedgerRepository(db)

	credit, err := ledger.NewCredit(id, 15, ledger.SourceAdminAdjustment, "")
	require.NoError(t, err)
	_, err = repo.Apply(ctx, credit)
	require.NoError(t, err)

	debit, err := ledger.NewDebit(id, 40, ledger.SourceAdminAdjustment, "")
	require.NoError(t, err)
	_, err = repo.Apply(ctx, debit)
	require.NoError(t, err)

	h := NewGetXPHistoryHandler(memory.NewLearnerRepository(db), repo)
	events, err := h.Handle(ctx, HistoryQuery{LearnerID: id})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, -40, events[0].RequestedDelta)
	assert.Equal(t, -15, events[0].AppliedDelta)
	assert.Equal(t, 0, events[0].BalanceAfter)
	assert.Equal(t, 15, events[1].AppliedDelta)
	assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt))

	limited, err := h.Handle(ctx, HistoryQuery{LearnerID: id, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetXPHistory_Errors(t *testing.T) {
	ctx := context.Background()
	db := memory.Open()
	id := db.AddLearner(learner.Learner{FullName: "Mariam"})
	h := NewGetXPHistoryHandler(memory.NewLearnerRepository(db), memory.NewLedgerRepository(db))

	_, err := h.Handle(ctx, HistoryQuery{LearnerID: id, Limit: -1})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, HistoryQuery{LearnerID: "not-a-uuid"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, HistoryQuery{LearnerID: shared.NewID()})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetActivities_FromCheckins(t *testing.T) {
	ctx := context.Background()
	db := memory.Open()
	db.SetClock(steppingClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))
	id := db.AddLearner(learner.Learner{FullName: "Khalid"})
	checkins := memory.NewCheckinRepository(db)

	day := shared.MustLocalDate("2024-03-01")
	_, err := checkins.Checkin(ctx, id, shared.CheckinData, day, 5)
	require.NoError(t, err)
	_, err = checkins.Checkin(ctx, id, shared.CheckinSoft, day, 5)
	require.NoError(t, err)

	h := NewGetActivitiesHandler(memory.NewLearnerRepository(db), memory.NewActivityRepository(db))
	items, err := h.Handle(ctx, HistoryQuery{LearnerID: id})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "checkin", items[0].Type)
	assert.Equal(t, 5, items[0].XPEarned)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))

	_, err = h.Handle(ctx, HistoryQuery{LearnerID: shared.NewID()})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetCheckin_State(t *testing.T) {
	ctx := context.Background()
	db := memory.Open()
	id := db.AddLearner(learner.Learner{FullName: "Layla"})
	checkins := memory.NewCheckinRepository(db)
	h := NewGetCheckinHandler(checkins)

	empty, err := h.Handle(ctx, GetCheckinQuery{LearnerID: id, Date: "2024-03-02"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", empty.Date)
	assert.False(t, empty.Data || empty.Lang || empty.Soft)
	assert.Zero(t, empty.XPGenerated)

	_, err = checkins.Checkin(ctx, id, shared.CheckinLang, shared.MustLocalDate("2024-03-02"), 5)
	require.NoError(t, err)

	state, err := h.Handle(ctx, GetCheckinQuery{LearnerID: id, Date: "2024-03-02"})
	require.NoError(t, err)
	assert.True(t, state.Lang)
	assert.False(t, state.Data)
	assert.Equal(t, 5, state.XPGenerated)

	_, err = h.Handle(ctx, GetCheckinQuery{LearnerID: id, Date: "02/03/2024"})
	assert.True(t, shared.IsValidation(err))
}
