package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/progress"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// CatalogRepository implements catalog.Repository and
// progress.CompletionRepository.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

var (
	_ catalog.Repository            = (*CatalogRepository)(nil)
	_ progress.CompletionRepository = (*CatalogRepository)(nil)
)

const lessonColumns = `id::text, title, track_type, level, english_level, published, order_index`

func (r *CatalogRepository) GetLesson(ctx context.Context, id string) (*catalog.Lesson, error) {
	l, err := scanLesson(r.conn.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
	if IsNoRows(err) {
		return nil, catalog.ErrLessonNotFound
	}
	if err != nil {
		return nil, classify("catalog", "GetLesson", err)
	}
	return &l, nil
}

// ListVisibleLessons filters by level in SQL; Compute filters again.
func (r *CatalogRepository) ListVisibleLessons(ctx context.Context, level shared.Level) ([]catalog.Lesson, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+lessonColumns+`
		FROM lessons
		WHERE published AND (level IS NULL OR level = $1)
		ORDER BY track_type, order_index, id`, string(level))
	if err != nil {
		return nil, classify("catalog", "ListVisibleLessons", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Lesson, error) {
		return scanLesson(row)
	})
	return out, classify("catalog", "ListVisibleLessons", err)
}

const taskColumns = `id::text, title, track_type, xp, level, published, deadline`

func (r *CatalogRepository) GetTask(ctx context.Context, id string) (*catalog.Task, error) {
	t, err := scanTask(r.conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if IsNoRows(err) {
		return nil, catalog.ErrTaskNotFound
	}
	if err != nil {
		return nil, classify("catalog", "GetTask", err)
	}
	return &t, nil
}

func (r *CatalogRepository) ListVisibleTasks(ctx context.Context, level shared.Level) ([]catalog.Task, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+taskColumns+`
		FROM tasks
		WHERE published AND (level IS NULL OR level = $1)
		ORDER BY created_at DESC`, string(level))
	if err != nil {
		return nil, classify("catalog", "ListVisibleTasks", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Task, error) {
		return scanTask(row)
	})
	return out, classify("catalog", "ListVisibleTasks", err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Lesson completions
// ──────────────────────────────────────────────────────────────────────────────

// UpsertLessonCompletion writes the (learner, lesson) fact. watched_at keeps
// the first time the lesson was marked watched and is cleared on un-watch.
func (r *CatalogRepository) UpsertLessonCompletion(ctx context.Context, c progress.LessonCompletion) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO lesson_completions (learner_id, lesson_id, watched, watched_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (learner_id, lesson_id) DO UPDATE
		SET watched    = EXCLUDED.watched,
		    watched_at = CASE WHEN EXCLUDED.watched
		                      THEN COALESCE(lesson_completions.watched_at, EXCLUDED.watched_at)
		                      ELSE NULL END,
		    updated_at = EXCLUDED.updated_at`,
		c.LearnerID, c.LessonID, c.Watched, c.WatchedAt, c.UpdatedAt)
	return classify("progress", "UpsertLessonCompletion", err)
}

func (r *CatalogRepository) ListWatchedLessonIDs(ctx context.Context, learnerID string) ([]string, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT lesson_id::text FROM lesson_completions WHERE learner_id = $1 AND watched`, learnerID)
	if err != nil {
		return nil, classify("progress", "ListWatchedLessonIDs", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return ids, classify("progress", "ListWatchedLessonIDs", err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scanning
// ──────────────────────────────────────────────────────────────────────────────

func scanLesson(row pgx.Row) (catalog.Lesson, error) {
	var (
		l       catalog.Lesson
		track   string
		level   *string
		english *string
	)
	if err := row.Scan(&l.ID, &l.Title, &track, &level, &english, &l.Published, &l.OrderIndex); err != nil {
		return catalog.Lesson{}, err
	}
	l.Track = shared.Track(track)
	l.Level = levelPtr(level)
	if english != nil {
		e := shared.EnglishLevel(*english)
		l.EnglishLevel = &e
	}
	return l, nil
}

func scanTask(row pgx.Row) (catalog.Task, error) {
	var (
		t        catalog.Task
		track    string
		level    *string
		deadline *time.Time
	)
	if err := row.Scan(&t.ID, &t.Title, &track, &t.XP, &level, &t.Published, &deadline); err != nil {
		return catalog.Task{}, err
	}
	t.Track = shared.Track(track)
	t.Level = levelPtr(level)
	t.Deadline = deadline
	return t, nil
}

func levelPtr(s *string) *shared.Level {
	if s == nil || *s == "" {
		return nil
	}
	l := shared.Level(*s)
	return &l
}
