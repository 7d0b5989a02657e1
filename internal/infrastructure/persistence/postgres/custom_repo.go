package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tracks-academy/progress-ledger/internal/domain/activity"
	"github.com/tracks-academy/progress-ledger/internal/domain/custom"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// CustomRepository implements custom.Repository over custom_lessons and
// custom_tasks.
type CustomRepository struct {
	conn *Connection
}

// NewCustomRepository creates a new CustomRepository.
func NewCustomRepository(conn *Connection) *CustomRepository {
	return &CustomRepository{conn: conn}
}

var _ custom.Repository = (*CustomRepository)(nil)

func customTable(kind custom.Kind) (table, xpExpr string, err error) {
	switch kind {
	case custom.KindLesson:
		return "custom_lessons", "0", nil
	case custom.KindTask:
		return "custom_tasks", "xp_value", nil
	}
	return "", "", shared.Validation("custom", "table", fmt.Sprintf("unknown kind %q", kind))
}

func (r *CustomRepository) Get(ctx context.Context, kind custom.Kind, id string) (*custom.Item, error) {
	item, err := getCustom(ctx, r.conn, kind, id, false)
	if err != nil {
		return nil, classify("custom", "Get", err)
	}
	return item, nil
}

func getCustom(ctx context.Context, q Querier, kind custom.Kind, id string, lock bool) (*custom.Item, error) {
	table, xpExpr, err := customTable(kind)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`
		SELECT id::text, learner_id::text, title, track_type, %s, completed, completed_at
		FROM %s WHERE id = $1`, xpExpr, table)
	if lock {
		sql += ` FOR UPDATE`
	}
	item := custom.Item{Kind: kind}
	var track string
	err = q.QueryRow(ctx, sql, id).Scan(&item.ID, &item.LearnerID, &item.Title, &track,
		&item.XPValue, &item.Completed, &item.CompletedAt)
	if IsNoRows(err) {
		return nil, custom.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	item.Track = shared.Track(track)
	return &item, nil
}

// SetCompleted locks the row, flips the flag if it differs and applies the
// matching XP entry in the same transaction.
func (r *CustomRepository) SetCompleted(
	ctx context.Context, kind custom.Kind, id string, completed bool, now time.Time,
) (custom.ToggleOutcome, error) {
	table, _, err := customTable(kind)
	if err != nil {
		return custom.ToggleOutcome{}, err
	}

	var out custom.ToggleOutcome
	err = r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		item, err := getCustom(ctx, tx, kind, id, true)
		if err != nil {
			return err
		}
		if item.Completed == completed {
			out = custom.ToggleOutcome{Item: *item}
			return nil
		}
		entry, hasXP := item.XPEntry(completed)

		var completedAt *time.Time
		if completed {
			completedAt = &now
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET completed = $2, completed_at = $3 WHERE id = $1`, table),
			id, completed, completedAt); err != nil {
			return err
		}
		item.Completed = completed
		item.CompletedAt = completedAt
		out = custom.ToggleOutcome{Item: *item, Changed: true}

		if hasXP {
			ev, err := applyXP(ctx, tx, entry, now)
			if err != nil {
				return err
			}
			out.XP = &ev
		}
		if completed && kind == custom.KindTask {
			return insertActivity(ctx, tx, activity.Activity{
				LearnerID:   item.LearnerID,
				Type:        activity.TypeCustomTask,
				Description: activity.CustomTaskDescription(item.Title),
				XPEarned:    item.XPValue,
				RelatedID:   item.ID,
				CreatedAt:   now,
			})
		}
		return nil
	})
	if err != nil {
		return custom.ToggleOutcome{}, classify("custom", "SetCompleted", err)
	}
	return out, nil
}
