package command

import (
	"context"

	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/progress"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
	"github.com/tracks-academy/progress-ledger/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE LESSON WATCHED COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ToggleLessonCommand records whether a learner watched a lesson.
type ToggleLessonCommand struct {
	LearnerID string
	LessonID  string
	// Watched is required; nil means the flag was missing from the request.
	Watched *bool
}

// Validate validates the command.
func (c ToggleLessonCommand) Validate() error {
	if _, err := shared.ParseID("learner_id", c.LearnerID); err != nil {
		return err
	}
	if _, err := shared.ParseID("lesson_id", c.LessonID); err != nil {
		return err
	}
	if c.Watched == nil {
		return shared.WrapError("command", "ToggleLesson", shared.ErrValidation, "watched is required", shared.ErrInvalidInput)
	}
	return nil
}

// ToggleLessonResult echoes the stored fact.
type ToggleLessonResult struct {
	LearnerID string
	LessonID  string
	Watched   bool
}

// ToggleLessonHandler handles ToggleLessonCommand.
type ToggleLessonHandler struct {
	learners    learner.Repository
	catalog     catalog.Repository
	completions progress.CompletionRepository
	pub         shared.EventPublisher
	retrier     *retry.Retrier
	now         Clock
}

// NewToggleLessonHandler creates a new ToggleLessonHandler.
func NewToggleLessonHandler(
	learners learner.Repository,
	cat catalog.Repository,
	completions progress.CompletionRepository,
	pub shared.EventPublisher,
	log *logger.Logger,
) *ToggleLessonHandler {
	return &ToggleLessonHandler{
		learners:    learners,
		catalog:     cat,
		completions: completions,
		pub:         pub,
		retrier:     newStoreRetrier(log, "toggle_lesson"),
		now:         utcNow,
	}
}

// Handle executes the command. A lesson that exists but is unpublished or
// not visible to the learner's level is reported as not found.
func (h *ToggleLessonHandler) Handle(ctx context.Context, cmd ToggleLessonCommand) (*ToggleLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	learnerID, _ := shared.ParseID("learner_id", cmd.LearnerID)
	lessonID, _ := shared.ParseID("lesson_id", cmd.LessonID)

	l, err := h.learners.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	lesson, err := h.catalog.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.VisibleTo(l.EffectiveLevel()) {
		return nil, catalog.ErrLessonNotFound
	}

	now := h.now()
	c := progress.LessonCompletion{
		LearnerID: learnerID,
		LessonID:  lessonID,
		Watched:   *cmd.Watched,
		UpdatedAt: now,
	}
	if c.Watched {
		c.WatchedAt = &now
	}
	if err := h.retrier.Do(ctx, func(ctx context.Context) error {
		return h.completions.UpsertLessonCompletion(ctx, c)
	}); err != nil {
		return nil, err
	}

	e := shared.NewLessonWatchedEvent(learnerID, lessonID, c.Watched)
	e.BaseEvent = correlation(ctx, e.BaseEvent)
	publish(ctx, h.pub, e)

	return &ToggleLessonResult{LearnerID: learnerID, LessonID: lessonID, Watched: c.Watched}, nil
}
