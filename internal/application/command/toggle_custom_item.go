package command

import (
	"context"

	"github.com/tracks-academy/progress-ledger/internal/domain/custom"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
	"github.com/tracks-academy/progress-ledger/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE CUSTOM ITEM COMMAND
// Переключение персонального урока/задания. Для задания с XP:
// выполнено → начисление, отмена → списание той же суммы (с зажимом в 0).
// ══════════════════════════════════════════════════════════════════════════════

// ToggleCustomItemCommand sets the completed flag of a custom lesson or task.
type ToggleCustomItemCommand struct {
	Kind      string
	ItemID    string
	Completed *bool
}

// Validate validates the command.
func (c ToggleCustomItemCommand) Validate() error {
	if _, err := custom.ParseKind(c.Kind); err != nil {
		return err
	}
	if _, err := shared.ParseID("item_id", c.ItemID); err != nil {
		return err
	}
	if c.Completed == nil {
		return shared.WrapError("command", "ToggleCustomItem", shared.ErrValidation, "completed is required", shared.ErrInvalidInput)
	}
	return nil
}

// ToggleCustomItemResult reports the stored state and any XP change.
type ToggleCustomItemResult struct {
	Item    custom.Item
	Changed bool
	// XPDelta is the applied delta; it can be smaller than the item's value
	// when a debit hit the zero floor.
	XPDelta int
	XPTotal *int
}

// ToggleCustomItemHandler handles ToggleCustomItemCommand.
type ToggleCustomItemHandler struct {
	repo    custom.Repository
	pub     shared.EventPublisher
	retrier *retry.Retrier
	now     Clock
}

// NewToggleCustomItemHandler creates a new ToggleCustomItemHandler.
func NewToggleCustomItemHandler(repo custom.Repository, pub shared.EventPublisher, log *logger.Logger) *ToggleCustomItemHandler {
	return &ToggleCustomItemHandler{
		repo:    repo,
		pub:     pub,
		retrier: newStoreRetrier(log, "toggle_custom_item"),
		now:     utcNow,
	}
}

// Handle executes the command. Re-sending the current state is a no-op.
func (h *ToggleCustomItemHandler) Handle(ctx context.Context, cmd ToggleCustomItemCommand) (*ToggleCustomItemResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	kind, _ := custom.ParseKind(cmd.Kind)
	itemID, _ := shared.ParseID("item_id", cmd.ItemID)

	var out custom.ToggleOutcome
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = h.repo.SetCompleted(ctx, kind, itemID, *cmd.Completed, h.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &ToggleCustomItemResult{Item: out.Item, Changed: out.Changed}
	if !out.Changed {
		return res, nil
	}

	toggled := shared.NewCustomItemToggledEvent(out.Item.LearnerID, out.Item.ID, string(kind), out.Item.Completed)
	toggled.BaseEvent = correlation(ctx, toggled.BaseEvent)
	events := []shared.Event{toggled}
	if out.XP != nil {
		res.XPDelta = out.XP.AppliedDelta
		total := out.XP.BalanceAfter.Int()
		res.XPTotal = &total
		events = append(events, xpChanged(ctx, *out.XP))
	}
	publish(ctx, h.pub, events...)
	return res, nil
}
