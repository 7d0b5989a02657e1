package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/ledger"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements ledger.Repository.
type LedgerRepository struct {
	conn *Connection
	now  func() time.Time
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn, now: time.Now}
}

var _ ledger.Repository = (*LedgerRepository)(nil)

// Apply credits or debits a learner in one transaction.
func (r *LedgerRepository) Apply(ctx context.Context, entry ledger.Entry) (ledger.Event, error) {
	var ev ledger.Event
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var err error
		ev, err = applyXP(ctx, tx, entry, r.now().UTC())
		return err
	})
	return ev, classify("ledger", "Apply", err)
}

// History returns the newest events first.
func (r *LedgerRepository) History(ctx context.Context, learnerID string, limit int) ([]ledger.Event, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id::text, learner_id::text, source, requested_delta, applied_delta, balance_after,
		       COALESCE(related_id::text, ''), created_at
		FROM xp_events
		WHERE learner_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, learnerID, shared.NormalizeLimit(limit))
	if err != nil {
		return nil, classify("ledger", "History", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.Event, error) {
		var e ledger.Event
		var balance int
		err := row.Scan(&e.ID, &e.LearnerID, &e.Source, &e.RequestedDelta, &e.AppliedDelta,
			&balance, &e.RelatedID, &e.CreatedAt)
		e.BalanceAfter = shared.XP(balance)
		return e, err
	})
	return events, classify("ledger", "History", err)
}

// applyXP is the single XP mutation primitive. It must run inside the
// transaction of the fact that caused it. The subquery takes the row lock
// first so the returned previous balance is the one the update applied to.
func applyXP(ctx context.Context, tx pgx.Tx, entry ledger.Entry, now time.Time) (ledger.Event, error) {
	var before, after int
	err := tx.QueryRow(ctx, `
		UPDATE learners AS l
		SET xp_total = GREATEST(0, l.xp_total + $2)
		FROM (SELECT id, xp_total FROM learners WHERE id = $1 FOR UPDATE) AS prev
		WHERE l.id = prev.id
		RETURNING prev.xp_total, l.xp_total`,
		entry.LearnerID, entry.Delta,
	).Scan(&before, &after)
	if IsNoRows(err) {
		return ledger.Event{}, learner.ErrLearnerNotFound
	}
	if err != nil {
		return ledger.Event{}, err
	}

	ev := ledger.Event{
		ID:             shared.NewID(),
		LearnerID:      entry.LearnerID,
		Source:         entry.Source,
		RequestedDelta: entry.Delta,
		AppliedDelta:   after - before,
		BalanceAfter:   shared.XP(after),
		RelatedID:      entry.RelatedID,
		CreatedAt:      now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO xp_events
		    (id, learner_id, source, requested_delta, applied_delta, balance_after, related_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, $8)`,
		ev.ID, ev.LearnerID, string(ev.Source), ev.RequestedDelta, ev.AppliedDelta,
		after, ev.RelatedID, ev.CreatedAt)
	if err != nil {
		return ledger.Event{}, err
	}
	return ev, nil
}

// insertActivity appends a feed row in the caller's transaction.
func insertActivity(ctx context.Context, tx pgx.Tx, a activity.Activity) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO activities (learner_id, activity_type, description, xp_earned, related_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6)`,
		a.LearnerID, string(a.Type), a.Description, a.XPEarned, a.RelatedID, a.CreatedAt)
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY FEED
// ══════════════════════════════════════════════════════════════════════════════

// ActivityRepository implements activity.Repository.
type ActivityRepository struct {
	conn *Connection
}

func NewActivityRepository(conn *Connection) *ActivityRepository {
	return &ActivityRepository{conn: conn}
}

var _ activity.Repository = (*ActivityRepository)(nil)

func (r *ActivityRepository) ListRecent(ctx context.Context, learnerID string, limit int) ([]activity.Activity, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id::text, learner_id::text, activity_type, description, xp_earned,
		       COALESCE(related_id::text, ''), created_at
		FROM activities
		WHERE learner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, learnerID, shared.NormalizeLimit(limit))
	if err != nil {
		return nil, classify("activity", "ListRecent", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (activity.Activity, error) {
		var a activity.Activity
		err := row.Scan(&a.ID, &a.LearnerID, &a.Type, &a.Description, &a.XPEarned, &a.RelatedID, &a.CreatedAt)
		return a, err
	})
	return out, classify("activity", "ListRecent", err)
}
