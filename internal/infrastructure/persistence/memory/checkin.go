package memory

import (
	"context"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/checkin"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

type checkinRepository struct {
	db *DB
}

var _ checkin.Repository = (*checkinRepository)(nil)

func NewCheckinRepository(db *DB) checkin.Repository {
	return &checkinRepository{db: db}
}

func (repo *checkinRepository) Checkin(
	_ context.Context, learnerID string, track shared.CheckinTrack, date shared.LocalDate, award int,
) (checkin.Outcome, error) {
	if _, err := shared.ParseCheckinTrack(string(track)); err != nil {
		return checkin.Outcome{}, err
	}
	entry, err := ledger.NewCredit(learnerID, award, ledger.SourceCheckin, "")
	if err != nil {
		return checkin.Outcome{}, err
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l, ok := repo.db.learners[learnerID]
	if !ok {
		return checkin.Outcome{}, learner.ErrLearnerNotFound
	}
	now := repo.db.now()

	key := checkinKey{learnerID, date.String()}
	dc, exists := repo.db.checkins[key]
	if !exists {
		dc = &checkin.DailyCheckin{
			ID:        shared.NewID(),
			LearnerID: learnerID,
			Date:      date,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	next := *dc
	if !next.Set(track) {
		return checkin.Outcome{Checkin: *dc}, nil
	}
	next.XPGenerated += award
	next.UpdatedAt = now

	entry.RelatedID = next.ID
	ev, err := repo.db.applyXP(entry, now)
	if err != nil {
		return checkin.Outcome{}, err
	}
	repo.db.checkins[key] = &next

	if !exists {
		l.StreakDays = checkin.NextStreak(repo.prevDate(learnerID, date), l.StreakDays, date)
	}

	repo.db.insertActivity(activity.Activity{
		LearnerID:   learnerID,
		Type:        activity.TypeCheckin,
		Description: activity.CheckinDescription(string(track)),
		XPEarned:    ev.AppliedDelta,
		RelatedID:   next.ID,
		CreatedAt:   now,
	})

	return checkin.Outcome{Applied: true, Checkin: next, XP: ev, StreakDays: l.StreakDays}, nil
}

// prevDate is the latest check-in day strictly before date.
func (repo *checkinRepository) prevDate(learnerID string, date shared.LocalDate) shared.LocalDate {
	var prev shared.LocalDate
	for k, dc := range repo.db.checkins {
		if k.learnerID != learnerID || !dc.Date.Time().Before(date.Time()) {
			continue
		}
		if prev.IsZero() || dc.Date.Time().After(prev.Time()) {
			prev = dc.Date
		}
	}
	return prev
}

func (repo *checkinRepository) Get(_ context.Context, learnerID string, date shared.LocalDate) (*checkin.DailyCheckin, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	dc, ok := repo.db.checkins[checkinKey{learnerID, date.String()}]
	if !ok {
		return nil, checkin.ErrCheckinNotFound
	}
	cp := *dc
	return &cp, nil
}
