// Package learner содержит доменную модель учащегося.
//
// Учащийся создаётся при регистрации (status=pending) и никогда не удаляется
// физически. XP и streak меняются только через ledger и check-in.
// Поля Cached* являются отображаемыми подсказками: авторитетное значение
// прогресса всегда пересчитывается пакетом progress.
package learner

import (
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// Status is the approval state of a learner account.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Role of the account.
type Role string

const (
	RoleLearner    Role = "learner"
	RoleAdmin      Role = "admin"
	RoleTeamLeader Role = "team_leader"
)

// CachedProgress holds the denormalized progress columns. Display-only.
type CachedProgress struct {
	Data       float64
	English    float64
	Soft       float64
	Overall    float64
	ComputedAt *time.Time
}

// Learner is a person enrolled in the academy.
type Learner struct {
	ID           string
	FullName     string
	Level        shared.Level
	EnglishLevel *shared.EnglishLevel
	Status       Status
	Role         Role
	TeamID       *string
	XPTotal      shared.XP
	StreakDays   int
	Cached       CachedProgress
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EffectiveLevel returns the level used for content visibility.
// Learners without a level see Beginner content.
func (l *Learner) EffectiveLevel() shared.Level {
	if l.Level.IsValid() {
		return l.Level
	}
	return shared.LevelBeginner
}

// IsRanked reports whether the learner appears on leaderboards.
func (l *Learner) IsRanked() bool {
	return l.Role != RoleAdmin
}

// Доменные ошибки.
var (
	ErrLearnerNotFound = shared.NotFound("learner", "Get", "learner not found")
	ErrTeamNotFound    = shared.NotFound("team", "Get", "team not found")
)
