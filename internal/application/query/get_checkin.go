package query

import (
	"context"
	"errors"

	"github.com/tracks-academy/progress-ledger/internal/domain/checkin"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// GetCheckinQuery asks for a learner's check-in flags on one date.
type GetCheckinQuery struct {
	LearnerID string
	Date      string
}

// CheckinStateDTO is the per-day state. A day without any check-in has all
// flags false.
type CheckinStateDTO struct {
	LearnerID   string `json:"learner_id"`
	Date        string `json:"date"`
	Data        bool   `json:"data"`
	Lang        bool   `json:"lang"`
	Soft        bool   `json:"soft"`
	XPGenerated int    `json:"xp_generated"`
}

// GetCheckinHandler handles GetCheckinQuery.
type GetCheckinHandler struct {
	checkins checkin.Repository
}

// NewGetCheckinHandler creates a new GetCheckinHandler.
func NewGetCheckinHandler(checkins checkin.Repository) *GetCheckinHandler {
	return &GetCheckinHandler{checkins: checkins}
}

// Handle executes the query.
func (h *GetCheckinHandler) Handle(ctx context.Context, q GetCheckinQuery) (*CheckinStateDTO, error) {
	id, err := shared.ParseID("learner_id", q.LearnerID)
	if err != nil {
		return nil, err
	}
	date, err := shared.ParseLocalDate(q.Date)
	if err != nil {
		return nil, err
	}

	res := &CheckinStateDTO{LearnerID: id, Date: date.String()}
	dc, err := h.checkins.Get(ctx, id, date)
	switch {
	case errors.Is(err, checkin.ErrCheckinNotFound):
		return res, nil
	case err != nil:
		return nil, err
	}
	res.Data = dc.DataTask
	res.Lang = dc.LangTask
	res.Soft = dc.SoftTask
	res.XPGenerated = dc.XPGenerated
	return res, nil
}
