package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/badge"
)

// BadgeRepository implements badge.Repository.
type BadgeRepository struct {
	conn *Connection
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(conn *Connection) *BadgeRepository {
	return &BadgeRepository{conn: conn}
}

var _ badge.Repository = (*BadgeRepository)(nil)

func (r *BadgeRepository) ListAll(ctx context.Context) ([]badge.Badge, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id::text, name, description, xp_required FROM badges ORDER BY xp_required, name`)
	if err != nil {
		return nil, classify("badge", "ListAll", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (badge.Badge, error) {
		var b badge.Badge
		err := row.Scan(&b.ID, &b.Name, &b.Description, &b.XPRequired)
		return b, err
	})
	return out, classify("badge", "ListAll", err)
}

func (r *BadgeRepository) ListHeld(ctx context.Context, learnerID string) ([]badge.Held, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT b.id::text, b.name, b.description, b.xp_required, lb.earned_at
		FROM learner_badges lb
		JOIN badges b ON b.id = lb.badge_id
		WHERE lb.learner_id = $1
		ORDER BY lb.earned_at`, learnerID)
	if err != nil {
		return nil, classify("badge", "ListHeld", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (badge.Held, error) {
		var h badge.Held
		err := row.Scan(&h.ID, &h.Name, &h.Description, &h.XPRequired, &h.EarnedAt)
		return h, err
	})
	return out, classify("badge", "ListHeld", err)
}

// Award inserts the (learner, badge) pair once and logs it in the feed.
func (r *BadgeRepository) Award(ctx context.Context, learnerID, badgeID string, now time.Time) (bool, error) {
	var awarded bool
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var name string
		err := tx.QueryRow(ctx, `
			WITH ins AS (
				INSERT INTO learner_badges (learner_id, badge_id, earned_at)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
				RETURNING badge_id
			)
			SELECT b.name FROM ins JOIN badges b ON b.id = ins.badge_id`,
			learnerID, badgeID, now).Scan(&name)
		if IsNoRows(err) {
			return nil
		}
		if err != nil {
			return err
		}
		awarded = true
		return insertActivity(ctx, tx, activity.Activity{
			LearnerID:   learnerID,
			Type:        activity.TypeBadgeEarned,
			Description: activity.BadgeDescription(name),
			RelatedID:   badgeID,
			CreatedAt:   now,
		})
	})
	return awarded, classify("badge", "Award", err)
}
