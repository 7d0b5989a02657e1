package query

import (
	"context"

	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TEAM MEMBERS QUERY
// Панель лидера команды: участники по xp_total DESC.
// ══════════════════════════════════════════════════════════════════════════════

// GetTeamMembersQuery asks for the members of one team.
type GetTeamMembersQuery struct {
	TeamID string
}

// TeamMemberDTO is one member row. Progress values are the cached display
// columns, refreshed by the reconcile job.
type TeamMemberDTO struct {
	LearnerID       string  `json:"learner_id"`
	FullName        string  `json:"full_name"`
	Role            string  `json:"role"`
	Level           string  `json:"level,omitempty"`
	XPTotal         int     `json:"xp_total"`
	StreakDays      int     `json:"streak_days"`
	OverallProgress float64 `json:"overall_progress"`
}

// GetTeamMembersResult lists the members.
type GetTeamMembersResult struct {
	TeamID  string          `json:"team_id"`
	Members []TeamMemberDTO `json:"members"`
	TotalXP int             `json:"total_xp"`
}

// GetTeamMembersHandler handles GetTeamMembersQuery.
type GetTeamMembersHandler struct {
	learners learner.Repository
}

// NewGetTeamMembersHandler creates a new GetTeamMembersHandler.
func NewGetTeamMembersHandler(learners learner.Repository) *GetTeamMembersHandler {
	return &GetTeamMembersHandler{learners: learners}
}

// Handle executes the query.
func (h *GetTeamMembersHandler) Handle(ctx context.Context, q GetTeamMembersQuery) (*GetTeamMembersResult, error) {
	teamID, err := shared.ParseID("team_id", q.TeamID)
	if err != nil {
		return nil, err
	}
	ls, err := h.learners.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	res := &GetTeamMembersResult{TeamID: teamID, Members: make([]TeamMemberDTO, 0, len(ls))}
	for _, l := range ls {
		res.TotalXP += l.XPTotal.Int()
		res.Members = append(res.Members, TeamMemberDTO{
			LearnerID:       l.ID,
			FullName:        l.FullName,
			Role:            string(l.Role),
			Level:           string(l.Level),
			XPTotal:         l.XPTotal.Int(),
			StreakDays:      l.StreakDays,
			OverallProgress: shared.ClampPercent(l.Cached.Overall).Round2(),
		})
	}
	return res, nil
}
