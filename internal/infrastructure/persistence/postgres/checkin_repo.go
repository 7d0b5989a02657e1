package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/checkin"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// CheckinRepository implements checkin.Repository.
type CheckinRepository struct {
	conn *Connection
	now  func() time.Time
}

// NewCheckinRepository creates a new CheckinRepository.
func NewCheckinRepository(conn *Connection) *CheckinRepository {
	return &CheckinRepository{conn: conn, now: time.Now}
}

var _ checkin.Repository = (*CheckinRepository)(nil)

// flagColumns whitelists the column names interpolated into SQL.
var flagColumns = map[shared.CheckinTrack]string{
	shared.CheckinData: "data_task",
	shared.CheckinLang: "lang_task",
	shared.CheckinSoft: "soft_task",
}

// Checkin runs the whole guard in one transaction:
//
//  1. insert the day row if missing (ON CONFLICT DO NOTHING);
//  2. compare-and-swap the flag: UPDATE … WHERE <flag> = false;
//  3. if no row was updated the flag was already set, stop;
//  4. credit the award, recompute the streak on the first check-in of the
//     day, append the activity row.
//
// Two concurrent calls for the same (learner, date, track) serialize on the
// row lock taken in step 2; the loser re-evaluates the predicate against the
// committed row and updates nothing.
func (r *CheckinRepository) Checkin(
	ctx context.Context, learnerID string, track shared.CheckinTrack, date shared.LocalDate, award int,
) (checkin.Outcome, error) {
	col, ok := flagColumns[track]
	if !ok {
		return checkin.Outcome{}, shared.Validation("checkin", "Checkin", fmt.Sprintf("unknown track %q", track))
	}
	entry, err := ledger.NewCredit(learnerID, award, ledger.SourceCheckin, "")
	if err != nil {
		return checkin.Outcome{}, err
	}

	var out checkin.Outcome
	err = r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		now := r.now().UTC()

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM learners WHERE id = $1)`, learnerID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return learner.ErrLearnerNotFound
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO daily_checkins (learner_id, date, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			ON CONFLICT (learner_id, date) DO NOTHING`,
			learnerID, date.Time(), now)
		if err != nil {
			return err
		}
		firstOfDay := tag.RowsAffected() == 1

		row := tx.QueryRow(ctx, fmt.Sprintf(`
			UPDATE daily_checkins
			SET %[1]s = TRUE, xp_generated = xp_generated + $3, updated_at = $4
			WHERE learner_id = $1 AND date = $2 AND %[1]s = FALSE
			RETURNING `+checkinColumns, col),
			learnerID, date.Time(), award, now)
		dc, err := scanCheckin(row)
		if IsNoRows(err) {
			// Already checked in for this track today.
			current, gerr := scanCheckin(tx.QueryRow(ctx,
				`SELECT `+checkinColumns+` FROM daily_checkins WHERE learner_id = $1 AND date = $2`,
				learnerID, date.Time()))
			if gerr != nil {
				return gerr
			}
			out = checkin.Outcome{Applied: false, Checkin: current}
			return nil
		}
		if err != nil {
			return err
		}

		entry.RelatedID = dc.ID
		ev, err := applyXP(ctx, tx, entry, now)
		if err != nil {
			return err
		}

		streak, err := r.updateStreak(ctx, tx, learnerID, date, firstOfDay)
		if err != nil {
			return err
		}

		if err := insertActivity(ctx, tx, activity.Activity{
			LearnerID:   learnerID,
			Type:        activity.TypeCheckin,
			Description: activity.CheckinDescription(string(track)),
			XPEarned:    ev.AppliedDelta,
			RelatedID:   dc.ID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		out = checkin.Outcome{Applied: true, Checkin: dc, XP: ev, StreakDays: streak}
		return nil
	})
	if err != nil {
		return checkin.Outcome{}, classify("checkin", "Checkin", err)
	}
	return out, nil
}

// updateStreak advances streak_days on the first check-in of a day.
// The learner row is already locked by applyXP.
func (r *CheckinRepository) updateStreak(
	ctx context.Context, tx pgx.Tx, learnerID string, date shared.LocalDate, firstOfDay bool,
) (int, error) {
	var current int
	var prev *time.Time
	err := tx.QueryRow(ctx, `
		SELECT l.streak_days,
		       (SELECT max(date) FROM daily_checkins WHERE learner_id = l.id AND date < $2)
		FROM learners l WHERE l.id = $1`, learnerID, date.Time()).Scan(&current, &prev)
	if err != nil {
		return 0, err
	}
	if !firstOfDay {
		return current, nil
	}
	var prevDate shared.LocalDate
	if prev != nil {
		prevDate = shared.LocalDateOf(*prev)
	}
	next := checkin.NextStreak(prevDate, current, date)
	if next == current {
		return current, nil
	}
	if _, err := tx.Exec(ctx, `UPDATE learners SET streak_days = $2 WHERE id = $1`, learnerID, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Get returns the row for (learner, date).
func (r *CheckinRepository) Get(ctx context.Context, learnerID string, date shared.LocalDate) (*checkin.DailyCheckin, error) {
	dc, err := scanCheckin(r.conn.QueryRow(ctx,
		`SELECT `+checkinColumns+` FROM daily_checkins WHERE learner_id = $1 AND date = $2`,
		learnerID, date.Time()))
	if IsNoRows(err) {
		return nil, checkin.ErrCheckinNotFound
	}
	if err != nil {
		return nil, classify("checkin", "Get", err)
	}
	return &dc, nil
}

const checkinColumns = `id::text, learner_id::text, date, data_task, lang_task, soft_task, xp_generated, created_at, updated_at`

func scanCheckin(row pgx.Row) (checkin.DailyCheckin, error) {
	var dc checkin.DailyCheckin
	var day time.Time
	err := row.Scan(&dc.ID, &dc.LearnerID, &day, &dc.DataTask, &dc.LangTask, &dc.SoftTask,
		&dc.XPGenerated, &dc.CreatedAt, &dc.UpdatedAt)
	if err != nil {
		return checkin.DailyCheckin{}, err
	}
	dc.Date = shared.LocalDateOf(day)
	return dc, nil
}
