package command

import (
	"context"

	"github.com/tracks-academy/progress-ledger/internal/domain/checkin"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
	"github.com/tracks-academy/progress-ledger/pkg/retry"
	"github.com/tracks-academy/progress-ledger/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERFORM CHECK-IN COMMAND
// Ежедневная отметка по треку: не больше одной награды на (учащийся, трек, день).
// ══════════════════════════════════════════════════════════════════════════════

// PerformCheckinCommand marks one track as done for a local calendar day.
type PerformCheckinCommand struct {
	LearnerID string
	Track     string
	// Date is the caller's local calendar day, YYYY-MM-DD.
	Date string
}

type checkinInput struct {
	learnerID string
	track     shared.CheckinTrack
	date      shared.LocalDate
}

func (c PerformCheckinCommand) parse() (checkinInput, error) {
	id, err := shared.ParseID("learner_id", c.LearnerID)
	if err != nil {
		return checkinInput{}, err
	}
	track, err := shared.ParseCheckinTrack(c.Track)
	if err != nil {
		return checkinInput{}, err
	}
	date, err := shared.ParseLocalDate(c.Date)
	if err != nil {
		return checkinInput{}, err
	}
	return checkinInput{learnerID: id, track: track, date: date}, nil
}

// Validate validates the command.
func (c PerformCheckinCommand) Validate() error {
	_, err := c.parse()
	return err
}

// PerformCheckinResult is returned for both outcomes. Success=false with
// Reason=ALREADY_CHECKED_IN is an expected answer, not an error.
type PerformCheckinResult struct {
	Success    bool
	Reason     string
	XPAwarded  int
	XPTotal    int
	StreakDays int
	Checkin    checkin.DailyCheckin
}

// PerformCheckinConfig configures the handler.
type PerformCheckinConfig struct {
	// Award is the XP for one check-in.
	Award int

	// EnforceDateWindow rejects dates that are not "today" in any time zone.
	// Off by default: any well-formed date is accepted.
	EnforceDateWindow bool

	Now Clock
}

// DefaultPerformCheckinConfig returns the production settings.
func DefaultPerformCheckinConfig() PerformCheckinConfig {
	return PerformCheckinConfig{Award: checkin.Award, EnforceDateWindow: false, Now: utcNow}
}

// PerformCheckinHandler handles PerformCheckinCommand.
type PerformCheckinHandler struct {
	repo    checkin.Repository
	pub     shared.EventPublisher
	retrier *retry.Retrier
	cfg     PerformCheckinConfig
	log     *logger.Logger
}

// NewPerformCheckinHandler creates a new PerformCheckinHandler.
func NewPerformCheckinHandler(
	repo checkin.Repository,
	pub shared.EventPublisher,
	cfg PerformCheckinConfig,
	log *logger.Logger,
) *PerformCheckinHandler {
	if cfg.Award <= 0 {
		cfg.Award = checkin.Award
	}
	if cfg.Now == nil {
		cfg.Now = utcNow
	}
	return &PerformCheckinHandler{
		repo:    repo,
		pub:     pub,
		retrier: newStoreRetrier(log, "perform_checkin"),
		cfg:     cfg,
		log:     log,
	}
}

// Handle executes the command.
func (h *PerformCheckinHandler) Handle(ctx context.Context, cmd PerformCheckinCommand) (*PerformCheckinResult, error) {
	in, err := cmd.parse()
	if err != nil {
		return nil, err
	}
	if h.cfg.EnforceDateWindow && !timeutil.IsPlausibleToday(h.cfg.Now(), in.date.Time()) {
		return nil, shared.WrapError("command", "PerformCheckin", shared.ErrValidation,
			"date is not today in any time zone", shared.ErrInvalidInput)
	}

	var out checkin.Outcome
	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = h.repo.Checkin(ctx, in.learnerID, in.track, in.date, h.cfg.Award)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !out.Applied {
		h.log.Debug("already checked in",
			logger.LearnerID(in.learnerID), logger.Track(string(in.track)), logger.String("date", in.date.String()))
		return &PerformCheckinResult{
			Success: false,
			Reason:  checkin.ReasonAlreadyCheckedIn,
			Checkin: out.Checkin,
		}, nil
	}

	done := shared.NewCheckinPerformedEvent(in.learnerID, string(in.track), in.date.String(), out.StreakDays)
	done.BaseEvent = correlation(ctx, done.BaseEvent)
	publish(ctx, h.pub, done, xpChanged(ctx, out.XP))

	h.log.Info("checked in",
		logger.LearnerID(in.learnerID),
		logger.Track(string(in.track)),
		logger.XPAmount(out.XP.AppliedDelta),
		logger.Int("streak_days", out.StreakDays),
	)
	return &PerformCheckinResult{
		Success:    true,
		XPAwarded:  out.XP.AppliedDelta,
		XPTotal:    out.XP.BalanceAfter.Int(),
		StreakDays: out.StreakDays,
		Checkin:    out.Checkin,
	}, nil
}
