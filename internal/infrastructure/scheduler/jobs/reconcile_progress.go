package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/progress"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE PROGRESS JOB
// Пересчитывает кешированные колонки прогресса всех учащихся. Источник
// истины - вычисление из завершений; кеш нужен только для списков команд.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressComputer derives a learner's live progress report.
type ProgressComputer interface {
	ComputeFor(ctx context.Context, l *learner.Learner) (progress.Report, error)
}

// ReconcileProgressConfig configures ReconcileProgressJob.
type ReconcileProgressConfig struct {
	// BatchSize is the page size for listing learner IDs.
	BatchSize int

	// Concurrency is the number of learners processed in parallel.
	Concurrency int

	// MaxFailureRatio fails the run when exceeded (0.5 = more than half).
	MaxFailureRatio float64

	Timeout time.Duration
}

// DefaultReconcileProgressConfig returns sensible defaults.
func DefaultReconcileProgressConfig() ReconcileProgressConfig {
	return ReconcileProgressConfig{
		BatchSize:       200,
		Concurrency:     8,
		MaxFailureRatio: 0.5,
		Timeout:         10 * time.Minute,
	}
}

// ReconcileStats describes one run.
type ReconcileStats struct {
	Processed int64
	Updated   int64
	Failed    int64
	Duration  time.Duration
}

// ErrTooManyFailures is returned when the failure ratio is exceeded.
var ErrTooManyFailures = errors.New("reconcile_progress: too many failures")

// ReconcileProgressJob refreshes learner.CachedProgress for every learner.
type ReconcileProgressJob struct {
	learners learner.Repository
	computer ProgressComputer
	log      *logger.Logger
	config   ReconcileProgressConfig
	now      func() time.Time

	last atomic.Pointer[ReconcileStats]
}

// ReconcileProgressJobName identifies the job in the scheduler.
const ReconcileProgressJobName = "reconcile_progress"

// NewReconcileProgressJob creates the job.
func NewReconcileProgressJob(
	learners learner.Repository,
	computer ProgressComputer,
	log *logger.Logger,
	config ReconcileProgressConfig,
) *ReconcileProgressJob {
	if log == nil {
		log = logger.Nop()
	}
	def := DefaultReconcileProgressConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.MaxFailureRatio <= 0 {
		config.MaxFailureRatio = def.MaxFailureRatio
	}
	return &ReconcileProgressJob{
		learners: learners,
		computer: computer,
		log:      log.With(logger.Component("reconcile_progress")),
		config:   config,
		now:      time.Now,
	}
}

func (j *ReconcileProgressJob) Name() string { return ReconcileProgressJobName }

func (j *ReconcileProgressJob) Description() string {
	return "Recomputes cached progress columns for every learner"
}

// Run walks all learners page by page.
func (j *ReconcileProgressJob) Run(ctx context.Context) error {
	started := time.Now()
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	stats := &ReconcileStats{}
	after := ""
	for {
		ids, err := j.learners.ListIDsAfter(ctx, after, j.config.BatchSize)
		if err != nil {
			return fmt.Errorf("reconcile_progress: list learners: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if err := j.processBatch(ctx, ids, stats); err != nil {
			return err
		}
		after = ids[len(ids)-1]
		if len(ids) < j.config.BatchSize {
			break
		}
	}

	stats.Duration = time.Since(started)
	j.last.Store(stats)
	j.log.Info("progress reconciled",
		logger.Int64("processed", stats.Processed),
		logger.Int64("updated", stats.Updated),
		logger.Int64("failed", stats.Failed),
		logger.Latency(stats.Duration),
	)

	if stats.Processed > 0 && float64(stats.Failed)/float64(stats.Processed) > j.config.MaxFailureRatio {
		return fmt.Errorf("%w: %d of %d", ErrTooManyFailures, stats.Failed, stats.Processed)
	}
	return nil
}

// processBatch handles one page. Individual failures are counted, not
// returned; only context cancellation aborts the batch.
func (j *ReconcileProgressJob) processBatch(ctx context.Context, ids []string, stats *ReconcileStats) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)

	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			atomic.AddInt64(&stats.Processed, 1)
			if err := j.reconcileOne(gctx, id); err != nil {
				atomic.AddInt64(&stats.Failed, 1)
				j.log.Warn("reconcile failed", logger.LearnerID(id), logger.Err(err))
				return nil
			}
			atomic.AddInt64(&stats.Updated, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reconcile_progress: %w", err)
	}
	return nil
}

func (j *ReconcileProgressJob) reconcileOne(ctx context.Context, id string) error {
	l, err := j.learners.GetByID(ctx, id)
	if err != nil {
		return err
	}
	r, err := j.computer.ComputeFor(ctx, l)
	if err != nil {
		return err
	}
	computedAt := j.now().UTC()
	return j.learners.SaveCachedProgress(ctx, id, learner.CachedProgress{
		Data:       r.PerTrack[shared.TrackData].Round2(),
		English:    r.PerTrack[shared.TrackEnglish].Round2(),
		Soft:       r.PerTrack[shared.TrackSoft].Round2(),
		Overall:    r.Overall.Round2(),
		ComputedAt: &computedAt,
	})
}

// LastStats returns the stats of the last completed run, or nil.
func (j *ReconcileProgressJob) LastStats() *ReconcileStats {
	return j.last.Load()
}
