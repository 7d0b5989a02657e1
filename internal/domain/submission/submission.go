// Package submission models task proofs and their review lifecycle.
//
//	pending ──submit──▶ submitted ──approve──▶ approved (terminal)
//	                       │  ▲
//	                reject │  │ submit
//	                       ▼  │
//	                     rejected
package submission

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// Status of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusRejected:  {StatusSubmitted},
	StatusApproved:  nil,
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether s → next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// ═══════════════════════════════════════════════════════════════════════════
// Proof
// ═══════════════════════════════════════════════════════════════════════════

// ProofType describes how the proof should be interpreted.
type ProofType string

const (
	ProofText ProofType = "text"
	ProofLink ProofType = "link"
	ProofFile ProofType = "file"
)

// MaxProofLength is the limit in characters after trimming.
const MaxProofLength = 10000

// Proof is validated learner evidence.
type Proof struct {
	Text string
	Type ProofType
}

// NewProof trims and validates raw proof input. File proofs carry the
// storage path of an already uploaded object.
func NewProof(text string, typ ProofType) (Proof, error) {
	text = strings.TrimSpace(text)
	if typ == "" {
		typ = ProofText
	}
	switch typ {
	case ProofText, ProofLink, ProofFile:
	default:
		return Proof{}, shared.Validation("submission", "NewProof", fmt.Sprintf("unknown proof type %q", typ))
	}
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return Proof{}, shared.Validation("submission", "NewProof", "proof is required")
	}
	if n > MaxProofLength {
		return Proof{}, shared.Validation("submission", "NewProof",
			fmt.Sprintf("proof is too long (max %d characters)", MaxProofLength))
	}
	if typ == ProofLink {
		u, err := url.ParseRequestURI(text)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Proof{}, shared.Validation("submission", "NewProof", "link proof must be an http(s) URL")
		}
	}
	return Proof{Text: text, Type: typ}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Submission
// ═══════════════════════════════════════════════════════════════════════════

// Submission is the (learner, task) fact. At most one per pair.
type Submission struct {
	ID              string
	LearnerID       string
	TaskID          string
	Status          Status
	Proof           Proof
	SubmittedAt     *time.Time
	ReviewedAt      *time.Time
	ReviewerID      *string
	RejectionReason string
	XPGranted       *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New creates a fresh pending submission.
func New(learnerID, taskID string, now time.Time) *Submission {
	return &Submission{
		ID:        shared.NewID(),
		LearnerID: learnerID,
		TaskID:    taskID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Submit attaches a proof. Re-submitting while still under review replaces
// the proof; an approved submission is frozen.
func (s *Submission) Submit(p Proof, now time.Time) error {
	if s.Status == StatusApproved {
		return ErrAlreadyApproved
	}
	if s.Status != StatusSubmitted && !s.Status.CanTransitionTo(StatusSubmitted) {
		return transitionError("Submit", s.Status, StatusSubmitted)
	}
	s.Status = StatusSubmitted
	s.Proof = p
	s.SubmittedAt = &now
	s.ReviewedAt = nil
	s.ReviewerID = nil
	s.RejectionReason = ""
	s.UpdatedAt = now
	return nil
}

// Decision is an admin review verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) IsValid() bool { return d == DecisionApprove || d == DecisionReject }

// Target returns the status the decision leads to.
func (d Decision) Target() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// CheckReview validates a decision against the current status. It returns
// done=true when the submission already carries that verdict, in which case
// the review must be a no-op.
func (s *Submission) CheckReview(d Decision) (done bool, err error) {
	if !d.IsValid() {
		return false, shared.Validation("submission", "Review", fmt.Sprintf("unknown decision %q", d))
	}
	target := d.Target()
	if s.Status == target {
		return true, nil
	}
	if !s.Status.CanTransitionTo(target) {
		return false, transitionError("Review", s.Status, target)
	}
	return false, nil
}

// ApprovalXP resolves the XP to grant: the override when given, else the
// task value.
func ApprovalXP(taskXP int, override *int) (int, error) {
	xp := taskXP
	if override != nil {
		xp = *override
	}
	if xp < 0 {
		return 0, shared.Validation("submission", "Approve", "xp must not be negative")
	}
	return xp, nil
}

func transitionError(op string, from, to Status) error {
	return shared.WrapError("submission", op, shared.ErrValidation,
		fmt.Sprintf("cannot move from %s to %s", from, to), shared.ErrStateTransition)
}

var (
	ErrSubmissionNotFound = shared.NotFound("submission", "Get", "submission not found")
	ErrAlreadyApproved    = shared.WrapError("submission", "Submit", shared.ErrConflict,
		"submission is already approved", shared.ErrAlreadyApproved)
	// ErrUnknownReviewer: reviewer_id is a UUID but not a learner.
	ErrUnknownReviewer = shared.Validation("submission", "Review", "reviewer_id does not match a learner")
)

// ReviewOutcome is what the store reports for one review attempt.
type ReviewOutcome struct {
	Submission *Submission
	Applied    bool          // false when the status had already moved on
	XP         *ledger.Event // set when XP was credited
}

// Repository persists submissions.
type Repository interface {
	// Get returns ErrSubmissionNotFound when absent.
	Get(ctx context.Context, id string) (*Submission, error)

	// GetByLearnerTask returns ErrSubmissionNotFound when absent.
	GetByLearnerTask(ctx context.Context, learnerID, taskID string) (*Submission, error)

	// SaveSubmitted upserts s keyed by (learner, task) unless the stored row
	// is approved, in which case it returns ErrAlreadyApproved.
	SaveSubmitted(ctx context.Context, s *Submission) (*Submission, error)

	// Approve moves a submitted row to approved and credits xp in the same
	// transaction. Applied=false if the row was not in submitted.
	Approve(ctx context.Context, id string, xp int, reviewerID string, now time.Time) (ReviewOutcome, error)

	// Reject moves a submitted row to rejected. Applied=false if the row was
	// not in submitted.
	Reject(ctx context.Context, id, reason, reviewerID string, now time.Time) (ReviewOutcome, error)

	// ListApprovedTaskIDs returns the ids of tasks approved for the learner.
	ListApprovedTaskIDs(ctx context.Context, learnerID string) ([]string, error)
}
