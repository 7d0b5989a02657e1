// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"errors"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/badge"
	"github.com/tracks-academy/progress-ledger/internal/domain/leaderboard"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/pkg/circuitbreaker"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON XP CHANGED HANDLER
// Запускается после коммита каждого изменения XP.
//
// 1. Выдаёт все бейджи, до порога которых дорос учащийся (только при начислении).
// 2. Обновляет позицию учащегося в кеше лидерборда.
//
// Ошибки здесь не откатывают изменение XP: бейджи догонит следующее
// начисление, а рейтинг пересоберёт воркер.
// ═══════════════════════════════════════════════════════════════════════════

// OnXPChangedHandler reacts to XPChangedEvent.
type OnXPChangedHandler struct {
	learners learner.Repository
	badges   badge.Repository
	cache    leaderboard.Cache
	breaker  *circuitbreaker.CircuitBreaker
	pub      shared.EventPublisher
	log      *logger.Logger
	now      func() time.Time
}

// NewOnXPChangedHandler creates the handler. cache and breaker may be nil;
// a nil badges repository turns automatic awards off.
func NewOnXPChangedHandler(
	learners learner.Repository,
	badges badge.Repository,
	cache leaderboard.Cache,
	breaker *circuitbreaker.CircuitBreaker,
	pub shared.EventPublisher,
	log *logger.Logger,
) *OnXPChangedHandler {
	return &OnXPChangedHandler{
		learners: learners,
		badges:   badges,
		cache:    cache,
		breaker:  breaker,
		pub:      pub,
		log:      log.With(logger.Component("on_xp_changed")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle implements shared.EventHandler.
func (h *OnXPChangedHandler) Handle(event shared.Event) error {
	ev, ok := event.(shared.XPChangedEvent)
	if !ok {
		h.log.Warn("unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}
	ctx := logger.ContextWithRequestID(context.Background(), ev.CorrelationID)

	// Читаем учащегося заново: события обрабатываются асинхронно, и
	// NewTotal в событии может уже устареть.
	l, err := h.learners.GetByID(ctx, ev.AggregateID())
	if err != nil {
		return err
	}

	var errs []error
	if ev.AppliedDelta > 0 && h.badges != nil {
		if err := h.awardBadges(ctx, l); err != nil {
			errs = append(errs, err)
		}
	}
	if err := h.updateLeaderboard(ctx, l); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (h *OnXPChangedHandler) awardBadges(ctx context.Context, l *learner.Learner) error {
	all, err := h.badges.ListAll(ctx)
	if err != nil {
		return err
	}
	held, err := h.badges.ListHeld(ctx, l.ID)
	if err != nil {
		return err
	}
	heldIDs := make([]string, 0, len(held))
	for _, b := range held {
		heldIDs = append(heldIDs, b.ID)
	}

	for _, b := range badge.Eligible(all, heldIDs, l.XPTotal.Int()) {
		awarded, err := h.badges.Award(ctx, l.ID, b.ID, h.now())
		if err != nil {
			return err
		}
		if !awarded {
			continue // concurrent handler got there first
		}
		h.log.Info("badge awarded", logger.LearnerID(l.ID), logger.String("badge", b.Name))
		e := shared.NewBadgeAwardedEvent(l.ID, b.ID, b.Name)
		if id := logger.RequestIDFromContext(ctx); id != "" {
			e.BaseEvent = e.BaseEvent.WithCorrelationID(id)
		}
		if err := h.pub.Publish(e); err != nil {
			h.log.Warn("publish badge event", logger.Err(err))
		}
	}
	return nil
}

func (h *OnXPChangedHandler) updateLeaderboard(ctx context.Context, l *learner.Learner) error {
	if h.cache == nil || !l.IsRanked() {
		return nil
	}
	entry := leaderboard.Entry{
		LearnerID:  l.ID,
		FullName:   l.FullName,
		XPTotal:    l.XPTotal.Int(),
		StreakDays: l.StreakDays,
	}
	upsert := func(ctx context.Context) error { return h.cache.Upsert(ctx, entry) }

	var err error
	if h.breaker != nil {
		err = h.breaker.Execute(ctx, upsert)
	} else {
		err = upsert(ctx)
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		// Redis недоступен: позиция восстановится при rebuild.
		h.log.Debug("leaderboard cache skipped, circuit open", logger.LearnerID(l.ID))
		return nil
	}
	return err
}
