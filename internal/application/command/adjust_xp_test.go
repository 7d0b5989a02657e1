package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/memory"
)

func TestAdjustXP(t *testing.T) {
	f := newFixture(t, time.Date(2024, 4, 4, 4, 0, 0, 0, time.UTC))
	learnerID := f.addLearner(shared.LevelIntermediate, 5)
	repo := memory.NewLedgerRepository(f.db)
	h := NewAdjustXPHandler(NewXPLedger(repo, f.bus, f.log), f.log)
	ctx := context.Background()

	credit, err := h.Handle(ctx, AdjustXPCommand{LearnerID: learnerID, Amount: 10, Direction: "credit"})
	require.NoError(t, err)
	assert.False(t, credit.Clamped)
	assert.Equal(t, 15, credit.Event.BalanceAfter.Int())

	debit, err := h.Handle(ctx, AdjustXPCommand{LearnerID: learnerID, Amount: 100, Direction: "Debit"})
	require.NoError(t, err)
	assert.True(t, debit.Clamped)
	assert.Equal(t, -100, debit.Event.RequestedDelta)
	assert.Equal(t, -15, debit.Event.AppliedDelta)
	assert.Equal(t, 0, f.xp(t, learnerID))

	history, err := repo.History(ctx, learnerID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ledger.SourceAdminAdjustment, history[0].Source)
	assert.Equal(t, 0, history[0].BalanceAfter.Int())

	assert.Len(t, f.bus.ofType(shared.EventXPChanged), 2)
}

func TestAdjustXP_Validation(t *testing.T) {
	f := newFixture(t, time.Now())
	learnerID := f.addLearner(shared.LevelBeginner, 0)
	h := NewAdjustXPHandler(NewXPLedger(memory.NewLedgerRepository(f.db), f.bus, f.log), f.log)

	for _, cmd := range []AdjustXPCommand{
		{LearnerID: learnerID, Amount: 0, Direction: "credit"},
		{LearnerID: learnerID, Amount: -5, Direction: "debit"},
		{LearnerID: learnerID, Amount: 5, Direction: "refund"},
		{LearnerID: "someone", Amount: 5, Direction: "credit"},
	} {
		_, err := h.Handle(context.Background(), cmd)
		assert.True(t, shared.IsValidation(err), "%+v: %v", cmd, err)
	}

	_, err := h.Handle(context.Background(), AdjustXPCommand{LearnerID: shared.NewID(), Amount: 5, Direction: "credit"})
	assert.True(t, shared.IsNotFound(err))
}
