// Package query contains the read side. Queries never modify state.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/progress"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/domain/submission"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Прогресс считается на лету из фактов; кешированные колонки не читаются.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery asks for one learner's progress.
type GetProgressQuery struct {
	LearnerID string
}

// TrackProgressDTO is the per-track breakdown.
type TrackProgressDTO struct {
	Track   string  `json:"track"`
	Percent float64 `json:"percent"`
	Done    int     `json:"done"`
	Total   int     `json:"total"`
}

// GetProgressResult is the computed report. Percentages are already rounded
// to two decimals.
type GetProgressResult struct {
	LearnerID  string             `json:"learner_id"`
	Level      string             `json:"level"`
	Data       float64            `json:"data"`
	English    float64            `json:"english"`
	Soft       float64            `json:"soft"`
	Tasks      float64            `json:"tasks"`
	Overall    float64            `json:"overall"`
	Tracks     []TrackProgressDTO `json:"tracks"`
	TasksDone  int                `json:"tasks_done"`
	TasksTotal int                `json:"tasks_total"`
	XPTotal    int                `json:"xp_total"`
	StreakDays int                `json:"streak_days"`
}

// GetProgressHandler handles GetProgressQuery.
type GetProgressHandler struct {
	learners    learner.Repository
	catalog     catalog.Repository
	completions progress.CompletionRepository
	submissions submission.Repository
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(
	learners learner.Repository,
	cat catalog.Repository,
	completions progress.CompletionRepository,
	submissions submission.Repository,
) *GetProgressHandler {
	return &GetProgressHandler{
		learners:    learners,
		catalog:     cat,
		completions: completions,
		submissions: submissions,
	}
}

// Handle executes the query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*GetProgressResult, error) {
	id, err := shared.ParseID("learner_id", q.LearnerID)
	if err != nil {
		return nil, err
	}
	l, err := h.learners.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snap, err := h.snapshot(ctx, l)
	if err != nil {
		return nil, err
	}
	return newProgressResult(l, progress.Compute(snap)), nil
}

// snapshot loads the four independent inputs concurrently.
func (h *GetProgressHandler) snapshot(ctx context.Context, l *learner.Learner) (progress.Snapshot, error) {
	snap := progress.Snapshot{Level: l.EffectiveLevel()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Lessons, err = h.catalog.ListVisibleLessons(gctx, snap.Level)
		return err
	})
	g.Go(func() (err error) {
		snap.WatchedLessons, err = h.completions.ListWatchedLessonIDs(gctx, l.ID)
		return err
	})
	g.Go(func() (err error) {
		snap.Tasks, err = h.catalog.ListVisibleTasks(gctx, snap.Level)
		return err
	})
	g.Go(func() (err error) {
		snap.ApprovedTaskIDs, err = h.submissions.ListApprovedTaskIDs(gctx, l.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return progress.Snapshot{}, err
	}
	return snap, nil
}

// ComputeFor is used by the reconcile job, which already holds the learner.
func (h *GetProgressHandler) ComputeFor(ctx context.Context, l *learner.Learner) (progress.Report, error) {
	snap, err := h.snapshot(ctx, l)
	if err != nil {
		return progress.Report{}, err
	}
	return progress.Compute(snap), nil
}

func newProgressResult(l *learner.Learner, r progress.Report) *GetProgressResult {
	res := &GetProgressResult{
		LearnerID:  l.ID,
		Level:      string(l.EffectiveLevel()),
		Data:       r.PerTrack[shared.TrackData].Round2(),
		English:    r.PerTrack[shared.TrackEnglish].Round2(),
		Soft:       r.PerTrack[shared.TrackSoft].Round2(),
		Tasks:      r.TaskPct.Round2(),
		Overall:    r.Overall.Round2(),
		TasksDone:  r.TasksDone,
		TasksTotal: r.TasksTotal,
		XPTotal:    l.XPTotal.Int(),
		StreakDays: l.StreakDays,
	}
	for _, t := range shared.FixedTracks {
		res.Tracks = append(res.Tracks, TrackProgressDTO{
			Track:   string(t),
			Percent: r.PerTrack[t].Round2(),
			Done:    r.LessonsDone[t],
			Total:   r.LessonsTotal[t],
		})
	}
	return res
}
