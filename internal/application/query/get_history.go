package query

import (
	"context"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP HISTORY & ACTIVITY FEED
// Оба списка только для чтения, новые записи первыми.
// ══════════════════════════════════════════════════════════════════════════════

// HistoryQuery selects the newest entries for a learner.
type HistoryQuery struct {
	LearnerID string
	Limit     int
}

func (q HistoryQuery) parse() (string, int, error) {
	id, err := shared.ParseID("learner_id", q.LearnerID)
	if err != nil {
		return "", 0, err
	}
	if q.Limit < 0 {
		return "", 0, shared.Validation("query", "History", "limit must not be negative")
	}
	return id, shared.NormalizeLimit(q.Limit), nil
}

// XPEventDTO is one applied XP change.
type XPEventDTO struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	RequestedDelta int       `json:"requested_delta"`
	AppliedDelta   int       `json:"applied_delta"`
	BalanceAfter   int       `json:"balance_after"`
	RelatedID      string    `json:"related_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActivityDTO is one feed entry.
type ActivityDTO struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	XPEarned    int       `json:"xp_earned"`
	RelatedID   string    `json:"related_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetXPHistoryHandler returns the XP event log of a learner.
type GetXPHistoryHandler struct {
	learners learner.Repository
	ledger   ledger.Repository
}

func NewGetXPHistoryHandler(learners learner.Repository, repo ledger.Repository) *GetXPHistoryHandler {
	return &GetXPHistoryHandler{learners: learners, ledger: repo}
}

func (h *GetXPHistoryHandler) Handle(ctx context.Context, q HistoryQuery) ([]XPEventDTO, error) {
	id, limit, err := q.parse()
	if err != nil {
		return nil, err
	}
	// 404 для неизвестного учащегося, а не пустой список.
	if _, err := h.learners.GetByID(ctx, id); err != nil {
		return nil, err
	}
	events, err := h.ledger.History(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	out := make([]XPEventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, XPEventDTO{
			ID:             ev.ID,
			Source:         string(ev.Source),
			RequestedDelta: ev.RequestedDelta,
			AppliedDelta:   ev.AppliedDelta,
			BalanceAfter:   ev.BalanceAfter.Int(),
			RelatedID:      ev.RelatedID,
			CreatedAt:      ev.CreatedAt,
		})
	}
	return out, nil
}

// GetActivitiesHandler returns the activity feed of a learner.
type GetActivitiesHandler struct {
	learners   learner.Repository
	activities activity.Repository
}

func NewGetActivitiesHandler(learners learner.Repository, repo activity.Repository) *GetActivitiesHandler {
	return &GetActivitiesHandler{learners: learners, activities: repo}
}

func (h *GetActivitiesHandler) Handle(ctx context.Context, q HistoryQuery) ([]ActivityDTO, error) {
	id, limit, err := q.parse()
	if err != nil {
		return nil, err
	}
	if _, err := h.learners.GetByID(ctx, id); err != nil {
		return nil, err
	}
	items, err := h.activities.ListRecent(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ActivityDTO, 0, len(items))
	for _, a := range items {
		out = append(out, ActivityDTO{
			ID:          a.ID,
			Type:        string(a.Type),
			Description: a.Description,
			XPEarned:    a.XPEarned,
			RelatedID:   a.RelatedID,
			CreatedAt:   a.CreatedAt,
		})
	}
	return out, nil
}
