package learner

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции чтения учащихся.
// XP и streak здесь не изменяются: это делают ledger и check-in в своих транзакциях.
type Repository interface {
	// GetByID возвращает учащегося по ID.
	// Возвращает ErrLearnerNotFound, если учащийся не найден.
	GetByID(ctx context.Context, id string) (*Learner, error)

	// ListByTeam возвращает участников команды, отсортированных по xp_total DESC.
	// Возвращает ErrTeamNotFound, если команды нет.
	ListByTeam(ctx context.Context, teamID string) ([]*Learner, error)

	// ListRanked возвращает учащихся (кроме админов) по xp_total DESC, streak_days DESC.
	ListRanked(ctx context.Context, limit int) ([]*Learner, error)

	// ListIDsAfter постранично возвращает ID всех учащихся, упорядоченные по ID.
	ListIDsAfter(ctx context.Context, afterID string, limit int) ([]string, error)

	// SaveCachedProgress перезаписывает отображаемые колонки прогресса.
	// Вызывается только фоновой задачей сверки.
	SaveCachedProgress(ctx context.Context, id string, p CachedProgress) error
}
