package http

import (
	"time"

	"github.com/tracks-academy/progress-ledger/internal/application/command"
	"github.com/tracks-academy/progress-ledger/internal/domain/submission"
)

// ──────────────────────────────────────────────────────────────────────────────
// Request bodies
// ──────────────────────────────────────────────────────────────────────────────

type toggleLessonRequest struct {
	Watched *bool `json:"watched" binding:"required"`
}

type submitProofRequest struct {
	Proof     string `json:"proof" binding:"notblank,max=10000"`
	ProofType string `json:"proof_type" binding:"omitempty,oneof=text link file"`
}

type reviewRequest struct {
	Decision   string `json:"decision" binding:"required,oneof=approve reject"`
	XPOverride *int   `json:"xp_override" binding:"omitempty,min=0"`
	Reason     string `json:"reason" binding:"max=2000"`
}

type checkinRequest struct {
	Track string `json:"track" binding:"required,track"`
	Date  string `json:"date" binding:"required,localdate"`
}

type toggleCustomRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

type adjustXPRequest struct {
	Amount    int    `json:"amount" binding:"required,gt=0"`
	Direction string `json:"direction" binding:"required,oneof=credit debit"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Response bodies
// ──────────────────────────────────────────────────────────────────────────────

type lessonStateResponse struct {
	LearnerID string `json:"learner_id"`
	LessonID  string `json:"lesson_id"`
	Watched   bool   `json:"watched"`
}

type submissionResponse struct {
	ID              string     `json:"id"`
	LearnerID       string     `json:"learner_id"`
	TaskID          string     `json:"task_id"`
	Status          string     `json:"status"`
	Proof           string     `json:"proof"`
	ProofType       string     `json:"proof_type"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	XPGranted       *int       `json:"xp_granted,omitempty"`
	Resubmitted     bool       `json:"resubmitted,omitempty"`
	AlreadyReviewed bool       `json:"already_reviewed,omitempty"`
	XPAwarded       int        `json:"xp_awarded,omitempty"`
}

func newSubmissionResponse(s *submission.Submission) submissionResponse {
	return submissionResponse{
		ID:              s.ID,
		LearnerID:       s.LearnerID,
		TaskID:          s.TaskID,
		Status:          string(s.Status),
		Proof:           s.Proof.Text,
		ProofType:       string(s.Proof.Type),
		SubmittedAt:     s.SubmittedAt,
		ReviewedAt:      s.ReviewedAt,
		RejectionReason: s.RejectionReason,
		XPGranted:       s.XPGranted,
	}
}

type checkinResponse struct {
	LearnerID  string `json:"learner_id"`
	Date       string `json:"date"`
	Data       bool   `json:"data"`
	Lang       bool   `json:"lang"`
	Soft       bool   `json:"soft"`
	XPAwarded  int    `json:"xp_awarded"`
	XPTotal    int    `json:"xp_total"`
	StreakDays int    `json:"streak_days"`
}

func newCheckinResponse(learnerID string, r *command.PerformCheckinResult) checkinResponse {
	return checkinResponse{
		LearnerID:  learnerID,
		Date:       r.Checkin.Date.String(),
		Data:       r.Checkin.DataTask,
		Lang:       r.Checkin.LangTask,
		Soft:       r.Checkin.SoftTask,
		XPAwarded:  r.XPAwarded,
		XPTotal:    r.XPTotal,
		StreakDays: r.StreakDays,
	}
}

type customItemResponse struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Changed     bool       `json:"changed"`
	XPDelta     int        `json:"xp_delta"`
	XPTotal     *int       `json:"xp_total,omitempty"`
}

func newCustomItemResponse(r *command.ToggleCustomItemResult) customItemResponse {
	return customItemResponse{
		ID:          r.Item.ID,
		Kind:        string(r.Item.Kind),
		Title:       r.Item.Title,
		Completed:   r.Item.Completed,
		CompletedAt: r.Item.CompletedAt,
		Changed:     r.Changed,
		XPDelta:     r.XPDelta,
		XPTotal:     r.XPTotal,
	}
}

type xpAdjustResponse struct {
	LearnerID      string `json:"learner_id"`
	RequestedDelta int    `json:"requested_delta"`
	AppliedDelta   int    `json:"applied_delta"`
	XPTotal        int    `json:"xp_total"`
	Clamped        bool   `json:"clamped"`
}

func newXPAdjustResponse(r *command.AdjustXPResult) xpAdjustResponse {
	return xpAdjustResponse{
		LearnerID:      r.Event.LearnerID,
		RequestedDelta: r.Event.RequestedDelta,
		AppliedDelta:   r.Event.AppliedDelta,
		XPTotal:        r.Event.BalanceAfter.Int(),
		Clamped:        r.Clamped,
	}
}
