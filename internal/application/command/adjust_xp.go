package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
	"github.com/tracks-academy/progress-ledger/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER
// Credit/Debit поверх ledger.Repository. Баланс никогда не уходит ниже нуля.
// ══════════════════════════════════════════════════════════════════════════════

// XPLedger applies standalone XP changes and publishes XPChanged.
// Check-ins, approvals and toggles credit XP inside their own transaction
// instead of going through here.
type XPLedger struct {
	repo    ledger.Repository
	pub     shared.EventPublisher
	retrier *retry.Retrier
}

// NewXPLedger creates a new XPLedger.
func NewXPLedger(repo ledger.Repository, pub shared.EventPublisher, log *logger.Logger) *XPLedger {
	return &XPLedger{repo: repo, pub: pub, retrier: newStoreRetrier(log, "xp_ledger")}
}

// Credit adds amount (> 0) to the learner's balance.
func (l *XPLedger) Credit(ctx context.Context, learnerID string, amount int, source ledger.Source, relatedID string) (ledger.Event, error) {
	entry, err := ledger.NewCredit(learnerID, amount, source, relatedID)
	if err != nil {
		return ledger.Event{}, err
	}
	return l.apply(ctx, entry)
}

// Debit subtracts amount (> 0), clamping the balance at zero. The returned
// event carries the delta actually applied.
func (l *XPLedger) Debit(ctx context.Context, learnerID string, amount int, source ledger.Source, relatedID string) (ledger.Event, error) {
	entry, err := ledger.NewDebit(learnerID, amount, source, relatedID)
	if err != nil {
		return ledger.Event{}, err
	}
	return l.apply(ctx, entry)
}

func (l *XPLedger) apply(ctx context.Context, entry ledger.Entry) (ledger.Event, error) {
	var ev ledger.Event
	err := l.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		ev, err = l.repo.Apply(ctx, entry)
		return err
	})
	if err != nil {
		return ledger.Event{}, err
	}
	publish(ctx, l.pub, xpChanged(ctx, ev))
	return ev, nil
}

func xpChanged(ctx context.Context, ev ledger.Event) shared.Event {
	e := shared.NewXPChangedEvent(ev.LearnerID, string(ev.Source), ev.AppliedDelta, ev.BalanceAfter.Int(), ev.RelatedID)
	e.BaseEvent = correlation(ctx, e.BaseEvent)
	return e
}

// ══════════════════════════════════════════════════════════════════════════════
// ADJUST XP COMMAND (admin)
// ══════════════════════════════════════════════════════════════════════════════

// Direction of a manual adjustment.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// AdjustXPCommand is a manual XP correction by an admin.
type AdjustXPCommand struct {
	LearnerID string
	Amount    int
	Direction string
	ActorID   string
}

// Validate validates the command.
func (c AdjustXPCommand) Validate() error {
	if _, err := shared.ParseID("learner_id", c.LearnerID); err != nil {
		return err
	}
	if c.Amount <= 0 {
		return shared.WrapError("command", "AdjustXP", shared.ErrValidation, "amount must be positive", shared.ErrNonPositive)
	}
	switch strings.ToLower(c.Direction) {
	case DirectionCredit, DirectionDebit:
	default:
		return shared.Validation("command", "AdjustXP", fmt.Sprintf("direction must be credit or debit; got %q", c.Direction))
	}
	return nil
}

// AdjustXPResult reports the applied change.
type AdjustXPResult struct {
	Event   ledger.Event
	Clamped bool
}

// AdjustXPHandler handles AdjustXPCommand.
type AdjustXPHandler struct {
	ledger *XPLedger
	log    *logger.Logger
}

// NewAdjustXPHandler creates a new AdjustXPHandler.
func NewAdjustXPHandler(l *XPLedger, log *logger.Logger) *AdjustXPHandler {
	return &AdjustXPHandler{ledger: l, log: log}
}

// Handle executes the command.
func (h *AdjustXPHandler) Handle(ctx context.Context, cmd AdjustXPCommand) (*AdjustXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	learnerID, _ := shared.ParseID("learner_id", cmd.LearnerID)

	var (
		ev  ledger.Event
		err error
	)
	if strings.ToLower(cmd.Direction) == DirectionDebit {
		ev, err = h.ledger.Debit(ctx, learnerID, cmd.Amount, ledger.SourceAdminAdjustment, "")
	} else {
		ev, err = h.ledger.Credit(ctx, learnerID, cmd.Amount, ledger.SourceAdminAdjustment, "")
	}
	if err != nil {
		return nil, err
	}

	h.log.Info("xp adjusted",
		logger.LearnerID(learnerID),
		logger.String("actor_id", cmd.ActorID),
		logger.Int("requested", ev.RequestedDelta),
		logger.Int("applied", ev.AppliedDelta),
		logger.Int("balance", ev.BalanceAfter.Int()),
	)
	return &AdjustXPResult{Event: ev, Clamped: ev.Clamped()}, nil
}
