package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/submission"
)

// SubmissionRepository implements submission.Repository.
type SubmissionRepository struct {
	conn *Connection
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(conn *Connection) *SubmissionRepository {
	return &SubmissionRepository{conn: conn}
}

var _ submission.Repository = (*SubmissionRepository)(nil)

const submissionColumns = `
	id::text, learner_id::text, task_id::text, status, proof, proof_type, submitted_at, reviewed_at,
	reviewer_id::text, rejection_reason, xp_granted, created_at, updated_at`

func (r *SubmissionRepository) Get(ctx context.Context, id string) (*submission.Submission, error) {
	return r.getOne(ctx, "Get", `SELECT `+submissionColumns+` FROM task_submissions WHERE id = $1`, id)
}

func (r *SubmissionRepository) GetByLearnerTask(ctx context.Context, learnerID, taskID string) (*submission.Submission, error) {
	return r.getOne(ctx, "GetByLearnerTask",
		`SELECT `+submissionColumns+` FROM task_submissions WHERE learner_id = $1 AND task_id = $2`,
		learnerID, taskID)
}

func (r *SubmissionRepository) getOne(ctx context.Context, op, sql string, args ...any) (*submission.Submission, error) {
	s, err := scanSubmission(r.conn.QueryRow(ctx, sql, args...))
	if IsNoRows(err) {
		return nil, submission.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, classify("submission", op, err)
	}
	return s, nil
}

// SaveSubmitted upserts by (learner, task). The WHERE on the conflict branch
// keeps approved rows frozen; RETURNING yields no row in that case.
func (r *SubmissionRepository) SaveSubmitted(ctx context.Context, s *submission.Submission) (*submission.Submission, error) {
	row := r.conn.QueryRow(ctx, `
		INSERT INTO task_submissions
		    (id, learner_id, task_id, status, proof, proof_type, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (learner_id, task_id) DO UPDATE
		SET status           = EXCLUDED.status,
		    proof            = EXCLUDED.proof,
		    proof_type       = EXCLUDED.proof_type,
		    submitted_at     = EXCLUDED.submitted_at,
		    reviewed_at      = NULL,
		    reviewer_id      = NULL,
		    rejection_reason = '',
		    updated_at       = EXCLUDED.updated_at
		WHERE task_submissions.status <> 'approved'
		RETURNING `+submissionColumns,
		s.ID, s.LearnerID, s.TaskID, string(s.Status), s.Proof.Text, string(s.Proof.Type),
		s.SubmittedAt, s.UpdatedAt)
	saved, err := scanSubmission(row)
	if IsNoRows(err) {
		return nil, submission.ErrAlreadyApproved
	}
	if err != nil {
		return nil, classify("submission", "SaveSubmitted", err)
	}
	return saved, nil
}

// Approve is conditional on status = 'submitted', so of two concurrent
// approvals only one updates the row and credits XP.
func (r *SubmissionRepository) Approve(
	ctx context.Context, id string, xp int, reviewerID string, now time.Time,
) (submission.ReviewOutcome, error) {
	var out submission.ReviewOutcome
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		s, err := scanSubmission(tx.QueryRow(ctx, `
			UPDATE task_submissions
			SET status = 'approved', xp_granted = $2, reviewer_id = NULLIF($3, '')::uuid,
			    reviewed_at = $4, updated_at = $4
			WHERE id = $1 AND status = 'submitted'
			RETURNING `+submissionColumns,
			id, xp, reviewerID, now))
		if IsNoRows(err) {
			current, gerr := scanSubmission(tx.QueryRow(ctx,
				`SELECT `+submissionColumns+` FROM task_submissions WHERE id = $1`, id))
			if IsNoRows(gerr) {
				return submission.ErrSubmissionNotFound
			}
			if gerr != nil {
				return gerr
			}
			out = submission.ReviewOutcome{Submission: current}
			return nil
		}
		if err != nil {
			return err
		}
		out = submission.ReviewOutcome{Submission: s, Applied: true}

		var title string
		if err := tx.QueryRow(ctx, `SELECT title FROM tasks WHERE id = $1`, s.TaskID).Scan(&title); err != nil {
			return err
		}

		if xp > 0 {
			entry, err := ledger.NewCredit(s.LearnerID, xp, ledger.SourceTaskApproval, s.ID)
			if err != nil {
				return err
			}
			ev, err := applyXP(ctx, tx, entry, now)
			if err != nil {
				return err
			}
			out.XP = &ev
		}

		return insertActivity(ctx, tx, activity.Activity{
			LearnerID:   s.LearnerID,
			Type:        activity.TypeTaskApproved,
			Description: activity.TaskApprovedDescription(title),
			XPEarned:    xp,
			RelatedID:   s.TaskID,
			CreatedAt:   now,
		})
	})
	if isReviewerViolation(err) {
		return submission.ReviewOutcome{}, submission.ErrUnknownReviewer
	}
	if err != nil {
		return submission.ReviewOutcome{}, classify("submission", "Approve", err)
	}
	return out, nil
}

// Reject is conditional on status = 'submitted'.
func (r *SubmissionRepository) Reject(
	ctx context.Context, id, reason, reviewerID string, now time.Time,
) (submission.ReviewOutcome, error) {
	s, err := scanSubmission(r.conn.QueryRow(ctx, `
		UPDATE task_submissions
		SET status = 'rejected', rejection_reason = $2, reviewer_id = NULLIF($3, '')::uuid,
		    reviewed_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'submitted'
		RETURNING `+submissionColumns,
		id, reason, reviewerID, now))
	if IsNoRows(err) {
		current, gerr := r.Get(ctx, id)
		if gerr != nil {
			return submission.ReviewOutcome{}, gerr
		}
		return submission.ReviewOutcome{Submission: current}, nil
	}
	if isReviewerViolation(err) {
		return submission.ReviewOutcome{}, submission.ErrUnknownReviewer
	}
	if err != nil {
		return submission.ReviewOutcome{}, classify("submission", "Reject", err)
	}
	return submission.ReviewOutcome{Submission: s, Applied: true}, nil
}

func (r *SubmissionRepository) ListApprovedTaskIDs(ctx context.Context, learnerID string) ([]string, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT task_id::text FROM task_submissions WHERE learner_id = $1 AND status = 'approved'`, learnerID)
	if err != nil {
		return nil, classify("submission", "ListApprovedTaskIDs", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return ids, classify("submission", "ListApprovedTaskIDs", err)
}

func scanSubmission(row pgx.Row) (*submission.Submission, error) {
	var (
		s        submission.Submission
		status   string
		proofTyp string
	)
	err := row.Scan(&s.ID, &s.LearnerID, &s.TaskID, &status, &s.Proof.Text, &proofTyp,
		&s.SubmittedAt, &s.ReviewedAt, &s.ReviewerID, &s.RejectionReason, &s.XPGranted,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = submission.Status(status)
	s.Proof.Type = submission.ProofType(proofTyp)
	return &s, nil
}
