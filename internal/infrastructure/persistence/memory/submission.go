package memory

import (
	"context"
	"sort"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) Get(_ context.Context, id string) (*submission.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	s, ok := repo.db.submissions[id]
	if !ok {
		return nil, submission.ErrSubmissionNotFound
	}
	return copySubmission(s), nil
}

func (repo *submissionRepository) GetByLearnerTask(_ context.Context, learnerID, taskID string) (*submission.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	id, ok := repo.db.subByPair[submissionKey{learnerID, taskID}]
	if !ok {
		return nil, submission.ErrSubmissionNotFound
	}
	return copySubmission(repo.db.submissions[id]), nil
}

func (repo *submissionRepository) SaveSubmitted(_ context.Context, s *submission.Submission) (*submission.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := submissionKey{s.LearnerID, s.TaskID}
	if id, ok := repo.db.subByPair[key]; ok {
		cur := repo.db.submissions[id]
		if cur.Status == submission.StatusApproved {
			return nil, submission.ErrAlreadyApproved
		}
		cur.Status = s.Status
		cur.Proof = s.Proof
		cur.SubmittedAt = s.SubmittedAt
		cur.ReviewedAt = nil
		cur.ReviewerID = nil
		cur.RejectionReason = ""
		cur.UpdatedAt = s.UpdatedAt
		return copySubmission(cur), nil
	}

	stored := copySubmission(s)
	repo.db.submissions[stored.ID] = stored
	repo.db.subByPair[key] = stored.ID
	return copySubmission(stored), nil
}

func (repo *submissionRepository) Approve(
	_ context.Context, id string, xp int, reviewerID string, now time.Time,
) (submission.ReviewOutcome, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok {
		return submission.ReviewOutcome{}, submission.ErrSubmissionNotFound
	}
	if s.Status != submission.StatusSubmitted {
		return submission.ReviewOutcome{Submission: copySubmission(s)}, nil
	}
	if reviewerID != "" {
		if _, ok := repo.db.learners[reviewerID]; !ok {
			return submission.ReviewOutcome{}, submission.ErrUnknownReviewer
		}
	}

	out := submission.ReviewOutcome{Applied: true}
	var ev ledger.Event
	if xp > 0 {
		entry, err := ledger.NewCredit(s.LearnerID, xp, ledger.SourceTaskApproval, s.ID)
		if err != nil {
			return submission.ReviewOutcome{}, err
		}
		// applyXP before touching s so a missing learner leaves nothing behind
		if ev, err = repo.db.applyXP(entry, now); err != nil {
			return submission.ReviewOutcome{}, err
		}
		out.XP = &ev
	}

	s.Status = submission.StatusApproved
	s.XPGranted = &xp
	s.ReviewedAt = &now
	s.ReviewerID = reviewerPtr(reviewerID)
	s.UpdatedAt = now
	out.Submission = copySubmission(s)

	var title string
	if t, ok := repo.db.tasks[s.TaskID]; ok {
		title = t.Title
	}
	repo.db.insertActivity(activity.Activity{
		LearnerID:   s.LearnerID,
		Type:        activity.TypeTaskApproved,
		Description: activity.TaskApprovedDescription(title),
		XPEarned:    xp,
		RelatedID:   s.TaskID,
		CreatedAt:   now,
	})
	return out, nil
}

func (repo *submissionRepository) Reject(
	_ context.Context, id, reason, reviewerID string, now time.Time,
) (submission.ReviewOutcome, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok {
		return submission.ReviewOutcome{}, submission.ErrSubmissionNotFound
	}
	if s.Status != submission.StatusSubmitted {
		return submission.ReviewOutcome{Submission: copySubmission(s)}, nil
	}
	if reviewerID != "" {
		if _, ok := repo.db.learners[reviewerID]; !ok {
			return submission.ReviewOutcome{}, submission.ErrUnknownReviewer
		}
	}
	s.Status = submission.StatusRejected
	s.RejectionReason = reason
	s.ReviewedAt = &now
	s.ReviewerID = reviewerPtr(reviewerID)
	s.UpdatedAt = now
	return submission.ReviewOutcome{Submission: copySubmission(s), Applied: true}, nil
}

func (repo *submissionRepository) ListApprovedTaskIDs(_ context.Context, learnerID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0)
	for _, s := range repo.db.submissions {
		if s.LearnerID == learnerID && s.Status == submission.StatusApproved {
			ids = append(ids, s.TaskID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func copySubmission(s *submission.Submission) *submission.Submission {
	cp := *s
	return &cp
}

func reviewerPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
