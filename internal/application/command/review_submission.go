package command

import (
	"context"
	"strings"

	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/domain/submission"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
	"github.com/tracks-academy/progress-ledger/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW SUBMISSION COMMAND (admin)
// Одобрение начисляет XP ровно один раз: статус меняется условно
// (WHERE status = 'submitted') в той же транзакции, что и начисление.
// ══════════════════════════════════════════════════════════════════════════════

// ReviewSubmissionCommand is an admin verdict on a submission.
type ReviewSubmissionCommand struct {
	SubmissionID string
	Decision     string
	// XPOverride replaces the task's XP value on approval.
	XPOverride *int
	Reason     string
	ReviewerID string
}

// Validate validates the command.
func (c ReviewSubmissionCommand) Validate() error {
	if _, err := shared.ParseID("submission_id", c.SubmissionID); err != nil {
		return err
	}
	if c.ReviewerID != "" {
		if _, err := shared.ParseID("reviewer_id", c.ReviewerID); err != nil {
			return err
		}
	}
	d := submission.Decision(strings.ToLower(c.Decision))
	if !d.IsValid() {
		return shared.Validation("command", "ReviewSubmission", "decision must be approve or reject")
	}
	if c.XPOverride != nil && *c.XPOverride < 0 {
		return shared.Validation("command", "ReviewSubmission", "xp_override must not be negative")
	}
	return nil
}

// ReviewSubmissionResult holds the submission after the review.
type ReviewSubmissionResult struct {
	Submission *submission.Submission
	// AlreadyReviewed is true when the submission already carried this
	// verdict; nothing was written.
	AlreadyReviewed bool
	XPAwarded       int
}

// ReviewSubmissionHandler handles ReviewSubmissionCommand.
type ReviewSubmissionHandler struct {
	submissions submission.Repository
	catalog     catalog.Repository
	pub         shared.EventPublisher
	retrier     *retry.Retrier
	log         *logger.Logger
	now         Clock
}

// NewReviewSubmissionHandler creates a new ReviewSubmissionHandler.
func NewReviewSubmissionHandler(
	submissions submission.Repository,
	cat catalog.Repository,
	pub shared.EventPublisher,
	log *logger.Logger,
) *ReviewSubmissionHandler {
	return &ReviewSubmissionHandler{
		submissions: submissions,
		catalog:     cat,
		pub:         pub,
		retrier:     newStoreRetrier(log, "review_submission"),
		log:         log,
		now:         utcNow,
	}
}

// Handle executes the command.
func (h *ReviewSubmissionHandler) Handle(ctx context.Context, cmd ReviewSubmissionCommand) (*ReviewSubmissionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	id, _ := shared.ParseID("submission_id", cmd.SubmissionID)
	var reviewerID string
	if cmd.ReviewerID != "" {
		reviewerID, _ = shared.ParseID("reviewer_id", cmd.ReviewerID)
	}
	decision := submission.Decision(strings.ToLower(cmd.Decision))

	s, err := h.submissions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	done, err := s.CheckReview(decision)
	if err != nil {
		return nil, err
	}
	if done {
		return &ReviewSubmissionResult{Submission: s, AlreadyReviewed: true}, nil
	}

	var out submission.ReviewOutcome
	switch decision {
	case submission.DecisionApprove:
		task, err := h.catalog.GetTask(ctx, s.TaskID)
		if err != nil {
			return nil, err
		}
		xp, err := submission.ApprovalXP(task.XP, cmd.XPOverride)
		if err != nil {
			return nil, err
		}
		err = h.retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			out, err = h.submissions.Approve(ctx, id, xp, reviewerID, h.now())
			return err
		})
		if err != nil {
			return nil, err
		}
	case submission.DecisionReject:
		err = h.retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			out, err = h.submissions.Reject(ctx, id, strings.TrimSpace(cmd.Reason), reviewerID, h.now())
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	if !out.Applied {
		// Someone else moved the row between our read and the conditional update.
		if _, err := out.Submission.CheckReview(decision); err != nil {
			return nil, err
		}
		return &ReviewSubmissionResult{Submission: out.Submission, AlreadyReviewed: true}, nil
	}

	res := &ReviewSubmissionResult{Submission: out.Submission}
	granted := 0
	if out.Submission.XPGranted != nil {
		granted = *out.Submission.XPGranted
	}
	reviewed := shared.NewSubmissionEvent(shared.EventSubmissionReviewed, out.Submission.LearnerID,
		out.Submission.ID, out.Submission.TaskID, string(out.Submission.Status), granted)
	reviewed.BaseEvent = correlation(ctx, reviewed.BaseEvent)
	events := []shared.Event{reviewed}
	if out.XP != nil {
		res.XPAwarded = out.XP.AppliedDelta
		events = append(events, xpChanged(ctx, *out.XP))
	}
	publish(ctx, h.pub, events...)

	h.log.Info("submission reviewed",
		logger.String("submission_id", id),
		logger.String("decision", string(decision)),
		logger.LearnerID(out.Submission.LearnerID),
		logger.XPAmount(res.XPAwarded),
	)
	return res, nil
}
