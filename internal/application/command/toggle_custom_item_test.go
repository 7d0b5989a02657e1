package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracks-academy/progress-ledger/internal/domain/custom"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/memory"
)

func newToggleCustomFixture(t *testing.T, startXP, itemXP int) (*fixture, *ToggleCustomItemHandler, string, string) {
	t.Helper()
	f := newFixture(t, time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC))
	learnerID := f.addLearner(shared.LevelBeginner, startXP)
	itemID := f.db.AddCustomItem(custom.Item{
		LearnerID: learnerID, Kind: custom.KindTask, Title: "Mock interview", Track: "career", XPValue: itemXP,
	})
	h := NewToggleCustomItemHandler(memory.NewCustomRepository(f.db), f.bus, f.log)
	h.now = f.clock
	return f, h, learnerID, itemID
}

func TestToggleCustomItem_CompleteThenUndo(t *testing.T) {
	f, h, learnerID, itemID := newToggleCustomFixture(t, 0, 10)
	ctx := context.Background()

	done, err := h.Handle(ctx, ToggleCustomItemCommand{Kind: "tasks", ItemID: itemID, Completed: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, done.Changed)
	assert.True(t, done.Item.Completed)
	assert.NotNil(t, done.Item.CompletedAt)
	assert.Equal(t, 10, done.XPDelta)
	require.NotNil(t, done.XPTotal)
	assert.Equal(t, 10, *done.XPTotal)

	undone, err := h.Handle(ctx, ToggleCustomItemCommand{Kind: "task", ItemID: itemID, Completed: boolPtr(false)})
	require.NoError(t, err)
	assert.True(t, undone.Changed)
	assert.Nil(t, undone.Item.CompletedAt)
	assert.Equal(t, -10, undone.XPDelta)
	assert.Equal(t, 0, f.xp(t, learnerID))
}

func TestToggleCustomItem_ResendIsNoop(t *testing.T) {
	f, h, learnerID, itemID := newToggleCustomFixture(t, 0, 10)
	ctx := context.Background()
	cmd := ToggleCustomItemCommand{Kind: "task", ItemID: itemID, Completed: boolPtr(true)}

	_, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	again, err := h.Handle(ctx, cmd)
	require.NoError(t, err)

	assert.False(t, again.Changed)
	assert.Nil(t, again.XPTotal)
	assert.Equal(t, 10, f.xp(t, learnerID))
	assert.Len(t, f.bus.ofType(shared.EventXPChanged), 1)
}

func TestToggleCustomItem_DebitClampsAtZero(t *testing.T) {
	f, h, learnerID, itemID := newToggleCustomFixture(t, 0, 50)
	ctx := context.Background()

	_, err := h.Handle(ctx, ToggleCustomItemCommand{Kind: "task", ItemID: itemID, Completed: boolPtr(true)})
	require.NoError(t, err)

	// The learner lost XP elsewhere in between.
	adjust := NewAdjustXPHandler(NewXPLedger(memory.NewLedgerRepository(f.db), f.bus, f.log), f.log)
	_, err = adjust.Handle(ctx, AdjustXPCommand{LearnerID: learnerID, Amount: 30, Direction: DirectionDebit})
	require.NoError(t, err)
	require.Equal(t, 20, f.xp(t, learnerID))

	undone, err := h.Handle(ctx, ToggleCustomItemCommand{Kind: "task", ItemID: itemID, Completed: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, -20, undone.XPDelta)
	assert.Equal(t, 0, *undone.XPTotal)
	assert.Equal(t, 0, f.xp(t, learnerID))
}

func TestToggleCustomItem_LessonCarriesNoXP(t *testing.T) {
	f := newFixture(t, time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC))
	learnerID := f.addLearner(shared.LevelBeginner, 0)
	lessonID := f.db.AddCustomItem(custom.Item{LearnerID: learnerID, Kind: custom.KindLesson, Title: "Reading", Track: shared.TrackEnglish})
	h := NewToggleCustomItemHandler(memory.NewCustomRepository(f.db), f.bus, f.log)

	res, err := h.Handle(context.Background(), ToggleCustomItemCommand{Kind: "lesson", ItemID: lessonID, Completed: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Zero(t, res.XPDelta)
	assert.Nil(t, res.XPTotal)
	assert.Empty(t, f.bus.ofType(shared.EventXPChanged))
	assert.Len(t, f.bus.ofType(shared.EventCustomItemToggled), 1)
}

func TestToggleCustomItem_Errors(t *testing.T) {
	_, h, _, itemID := newToggleCustomFixture(t, 0, 10)
	ctx := context.Background()

	_, err := h.Handle(ctx, ToggleCustomItemCommand{Kind: "quiz", ItemID: itemID, Completed: boolPtr(true)})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, ToggleCustomItemCommand{Kind: "task", ItemID: itemID})
	assert.True(t, shared.IsValidation(err))

	// Same id, wrong kind.
	_, err = h.Handle(ctx, ToggleCustomItemCommand{Kind: "lesson", ItemID: itemID, Completed: boolPtr(true)})
	assert.True(t, shared.IsNotFound(err))
}
