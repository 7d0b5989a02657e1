package command

import (
	"context"
	"errors"

	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/domain/submission"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
	"github.com/tracks-academy/progress-ledger/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT TASK PROOF COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// SubmitTaskProofCommand attaches proof to the learner's submission for a task.
type SubmitTaskProofCommand struct {
	LearnerID string
	TaskID    string
	Proof     string
	ProofType string
}

// Validate validates the command.
func (c SubmitTaskProofCommand) Validate() error {
	if _, err := shared.ParseID("learner_id", c.LearnerID); err != nil {
		return err
	}
	if _, err := shared.ParseID("task_id", c.TaskID); err != nil {
		return err
	}
	_, err := submission.NewProof(c.Proof, submission.ProofType(c.ProofType))
	return err
}

// SubmitTaskProofResult holds the stored submission.
type SubmitTaskProofResult struct {
	Submission *submission.Submission
	// Resubmitted is true when an existing submission was updated.
	Resubmitted bool
}

// SubmitTaskProofHandler handles SubmitTaskProofCommand.
type SubmitTaskProofHandler struct {
	learners    learner.Repository
	catalog     catalog.Repository
	submissions submission.Repository
	pub         shared.EventPublisher
	retrier     *retry.Retrier
	now         Clock
}

// NewSubmitTaskProofHandler creates a new SubmitTaskProofHandler.
func NewSubmitTaskProofHandler(
	learners learner.Repository,
	cat catalog.Repository,
	submissions submission.Repository,
	pub shared.EventPublisher,
	log *logger.Logger,
) *SubmitTaskProofHandler {
	return &SubmitTaskProofHandler{
		learners:    learners,
		catalog:     cat,
		submissions: submissions,
		pub:         pub,
		retrier:     newStoreRetrier(log, "submit_task_proof"),
		now:         utcNow,
	}
}

// Handle executes the command.
func (h *SubmitTaskProofHandler) Handle(ctx context.Context, cmd SubmitTaskProofCommand) (*SubmitTaskProofResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	learnerID, _ := shared.ParseID("learner_id", cmd.LearnerID)
	taskID, _ := shared.ParseID("task_id", cmd.TaskID)
	proof, _ := submission.NewProof(cmd.Proof, submission.ProofType(cmd.ProofType))

	l, err := h.learners.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	task, err := h.catalog.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.VisibleTo(l.EffectiveLevel()) {
		return nil, catalog.ErrTaskNotFound
	}

	now := h.now()
	s, err := h.submissions.GetByLearnerTask(ctx, learnerID, taskID)
	resubmitted := err == nil
	switch {
	case errors.Is(err, submission.ErrSubmissionNotFound):
		s = submission.New(learnerID, taskID, now)
	case err != nil:
		return nil, err
	}
	if err := s.Submit(proof, now); err != nil {
		return nil, err
	}

	var saved *submission.Submission
	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		saved, err = h.submissions.SaveSubmitted(ctx, s)
		return err
	})
	if err != nil {
		return nil, err
	}

	e := shared.NewSubmissionEvent(shared.EventSubmissionSubmitted, learnerID, saved.ID, taskID, string(saved.Status), 0)
	e.BaseEvent = correlation(ctx, e.BaseEvent)
	publish(ctx, h.pub, e)

	return &SubmitTaskProofResult{Submission: saved, Resubmitted: resubmitted}, nil
}
