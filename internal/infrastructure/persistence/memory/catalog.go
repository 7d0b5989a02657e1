package memory

import (
	"context"
	"sort"

	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/progress"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// CatalogRepository serves the catalog and the lesson completions.
type CatalogRepository struct {
	db *DB
}

var (
	_ catalog.Repository            = (*CatalogRepository)(nil)
	_ progress.CompletionRepository = (*CatalogRepository)(nil)
)

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (repo *CatalogRepository) GetLesson(_ context.Context, id string) (*catalog.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	l, ok := repo.db.lessons[id]
	if !ok {
		return nil, catalog.ErrLessonNotFound
	}
	cp := *l
	return &cp, nil
}

func (repo *CatalogRepository) GetTask(_ context.Context, id string) (*catalog.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	t, ok := repo.db.tasks[id]
	if !ok {
		return nil, catalog.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (repo *CatalogRepository) ListVisibleLessons(_ context.Context, level shared.Level) ([]catalog.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]catalog.Lesson, 0, len(repo.db.lessons))
	for _, l := range repo.db.lessons {
		if l.VisibleTo(level) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Track != out[j].Track {
			return out[i].Track < out[j].Track
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (repo *CatalogRepository) ListVisibleTasks(_ context.Context, level shared.Level) ([]catalog.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]catalog.Task, 0, len(repo.db.tasks))
	for _, t := range repo.db.tasks {
		if t.VisibleTo(level) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (repo *CatalogRepository) UpsertLessonCompletion(_ context.Context, c progress.LessonCompletion) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := completionKey{c.LearnerID, c.LessonID}
	prev, ok := repo.db.completions[key]
	switch {
	case !c.Watched:
		c.WatchedAt = nil
	case ok && prev.WatchedAt != nil:
		c.WatchedAt = prev.WatchedAt
	}
	repo.db.completions[key] = &c
	return nil
}

func (repo *CatalogRepository) ListWatchedLessonIDs(_ context.Context, learnerID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0)
	for k, c := range repo.db.completions {
		if k.learnerID == learnerID && c.Watched {
			ids = append(ids, k.lessonID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
