package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// LearnerRepository implements learner.Repository.
type LearnerRepository struct {
	conn *Connection
}

// NewLearnerRepository creates a new LearnerRepository.
func NewLearnerRepository(conn *Connection) *LearnerRepository {
	return &LearnerRepository{conn: conn}
}

var _ learner.Repository = (*LearnerRepository)(nil)

const learnerColumns = `
	id::text, full_name, COALESCE(level, ''), english_level, status, role, team_id::text,
	xp_total, streak_days, data_progress, english_progress, soft_progress, overall_progress,
	progress_computed_at, created_at, updated_at`

// GetByID returns learner.ErrLearnerNotFound when absent.
func (r *LearnerRepository) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+learnerColumns+` FROM learners WHERE id = $1`, id)
	l, err := scanLearner(row)
	if IsNoRows(err) {
		return nil, learner.ErrLearnerNotFound
	}
	if err != nil {
		return nil, classify("learner", "GetByID", err)
	}
	return l, nil
}

// ListByTeam returns team members ordered like the leaderboard.
func (r *LearnerRepository) ListByTeam(ctx context.Context, teamID string) ([]*learner.Learner, error) {
	var exists bool
	if err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, teamID).Scan(&exists); err != nil {
		return nil, classify("learner", "ListByTeam", err)
	}
	if !exists {
		return nil, learner.ErrTeamNotFound
	}
	rows, err := r.conn.Query(ctx, `SELECT `+learnerColumns+`
		FROM learners
		WHERE team_id = $1
		ORDER BY xp_total DESC, streak_days DESC, id`, teamID)
	if err != nil {
		return nil, classify("learner", "ListByTeam", err)
	}
	return collectLearners(rows)
}

// ListRanked returns non-admin learners in leaderboard order.
func (r *LearnerRepository) ListRanked(ctx context.Context, limit int) ([]*learner.Learner, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+learnerColumns+`
		FROM learners
		WHERE role <> 'admin'
		ORDER BY xp_total DESC, streak_days DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, classify("learner", "ListRanked", err)
	}
	return collectLearners(rows)
}

// ListIDsAfter pages through all learner ids.
func (r *LearnerRepository) ListIDsAfter(ctx context.Context, afterID string, limit int) ([]string, error) {
	if afterID == "" {
		afterID = "00000000-0000-0000-0000-000000000000"
	}
	rows, err := r.conn.Query(ctx,
		`SELECT id::text FROM learners WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, classify("learner", "ListIDsAfter", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return ids, classify("learner", "ListIDsAfter", err)
}

// SaveCachedProgress writes the display-only progress columns.
func (r *LearnerRepository) SaveCachedProgress(ctx context.Context, id string, p learner.CachedProgress) error {
	computedAt := time.Now().UTC()
	if p.ComputedAt != nil {
		computedAt = *p.ComputedAt
	}
	tag, err := r.conn.Exec(ctx, `
		UPDATE learners
		SET data_progress = $2, english_progress = $3, soft_progress = $4,
		    overall_progress = $5, progress_computed_at = $6
		WHERE id = $1`,
		id, p.Data, p.English, p.Soft, p.Overall, computedAt)
	if err != nil {
		return classify("learner", "SaveCachedProgress", err)
	}
	if tag.RowsAffected() == 0 {
		return learner.ErrLearnerNotFound
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Scanning
// ──────────────────────────────────────────────────────────────────────────────

func scanLearner(row pgx.Row) (*learner.Learner, error) {
	var (
		l       learner.Learner
		level   string
		english *string
		teamID  *string
		xp      int
	)
	err := row.Scan(
		&l.ID, &l.FullName, &level, &english, &l.Status, &l.Role, &teamID,
		&xp, &l.StreakDays, &l.Cached.Data, &l.Cached.English, &l.Cached.Soft, &l.Cached.Overall,
		&l.Cached.ComputedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Level = shared.Level(level)
	if english != nil {
		e := shared.EnglishLevel(*english)
		l.EnglishLevel = &e
	}
	l.TeamID = teamID
	l.XPTotal = shared.XP(xp)
	return &l, nil
}

func collectLearners(rows pgx.Rows) ([]*learner.Learner, error) {
	defer rows.Close()
	var out []*learner.Learner
	for rows.Next() {
		l, err := scanLearner(rows)
		if err != nil {
			return nil, classify("learner", "scan", err)
		}
		out = append(out, l)
	}
	return out, classify("learner", "scan", rows.Err())
}
