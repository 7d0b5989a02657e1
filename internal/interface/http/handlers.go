package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tracks-academy/progress-ledger/internal/application/command"
	"github.com/tracks-academy/progress-ledger/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// GET /api/v1/learners/:id/progress
func (s *Server) handleGetProgress(c *gin.Context) {
	res, err := s.deps.GetProgress.Handle(c.Request.Context(), query.GetProgressQuery{LearnerID: c.Param("id")})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, res)
}

// PUT /api/v1/learners/:id/lessons/:lessonId/watched
func (s *Server) handleToggleLesson(c *gin.Context) {
	var req toggleLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := s.deps.ToggleLesson.Handle(c.Request.Context(), command.ToggleLessonCommand{
		LearnerID: c.Param("id"),
		LessonID:  c.Param("lessonId"),
		Watched:   req.Watched,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, lessonStateResponse{LearnerID: res.LearnerID, LessonID: res.LessonID, Watched: res.Watched})
}

// POST /api/v1/learners/:id/tasks/:taskId/submission
func (s *Server) handleSubmitProof(c *gin.Context) {
	var req submitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := s.deps.SubmitProof.Handle(c.Request.Context(), command.SubmitTaskProofCommand{
		LearnerID: c.Param("id"),
		TaskID:    c.Param("taskId"),
		Proof:     req.Proof,
		ProofType: req.ProofType,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	out := newSubmissionResponse(res.Submission)
	out.Resubmitted = res.Resubmitted
	respondOK(c, out)
}

// POST /api/v1/learners/:id/checkins
func (s *Server) handleCheckin(c *gin.Context) {
	var req checkinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	learnerID := c.Param("id")
	res, err := s.deps.Checkin.Handle(c.Request.Context(), command.PerformCheckinCommand{
		LearnerID: learnerID,
		Track:     req.Track,
		Date:      req.Date,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if !res.Success {
		respondRefused(c, res.Reason, newCheckinResponse(learnerID, res))
		return
	}
	respondOK(c, newCheckinResponse(learnerID, res))
}

// GET /api/v1/learners/:id/checkins/:date
func (s *Server) handleGetCheckin(c *gin.Context) {
	res, err := s.deps.GetCheckin.Handle(c.Request.Context(), query.GetCheckinQuery{
		LearnerID: c.Param("id"),
		Date:      c.Param("date"),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, res)
}

// GET /api/v1/learners/:id/xp-events?limit=
func (s *Server) handleXPHistory(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	res, err := s.deps.XPHistory.Handle(c.Request.Context(), query.HistoryQuery{LearnerID: c.Param("id"), Limit: limit})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, res)
}

// GET /api/v1/learners/:id/activities?limit=
func (s *Server) handleActivities(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	res, err := s.deps.Activities.Handle(c.Request.Context(), query.HistoryQuery{LearnerID: c.Param("id"), Limit: limit})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, res)
}

// PUT /api/v1/custom/:kind/:id/completed
func (s *Server) handleToggleCustom(c *gin.Context) {
	var req toggleCustomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := s.deps.ToggleCustom.Handle(c.Request.Context(), command.ToggleCustomItemCommand{
		Kind:      c.Param("kind"),
		ItemID:    c.Param("id"),
		Completed: req.Completed,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, newCustomItemResponse(res))
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD & TEAMS
// ══════════════════════════════════════════════════════════════════════════════

// GET /api/v1/leaderboard?limit=
func (s *Server) handleLeaderboard(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	res, err := s.deps.Leaderboard.Handle(c.Request.Context(), query.GetLeaderboardQuery{Limit: limit})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, res)
}

// GET /api/v1/teams/:id/members
func (s *Server) handleTeamMembers(c *gin.Context) {
	res, err := s.deps.TeamMembers.Handle(c.Request.Context(), query.GetTeamMembersQuery{TeamID: c.Param("id")})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// POST /api/v1/admin/submissions/:id/review
func (s *Server) handleReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := s.deps.Review.Handle(c.Request.Context(), command.ReviewSubmissionCommand{
		SubmissionID: c.Param("id"),
		Decision:     req.Decision,
		XPOverride:   req.XPOverride,
		Reason:       req.Reason,
		ReviewerID:   c.GetString(ctxKeyActorID),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	out := newSubmissionResponse(res.Submission)
	out.AlreadyReviewed = res.AlreadyReviewed
	out.XPAwarded = res.XPAwarded
	respondOK(c, out)
}

// POST /api/v1/admin/learners/:id/xp
func (s *Server) handleAdjustXP(c *gin.Context) {
	var req adjustXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := s.deps.AdjustXP.Handle(c.Request.Context(), command.AdjustXPCommand{
		LearnerID: c.Param("id"),
		Amount:    req.Amount,
		Direction: req.Direction,
		ActorID:   c.GetString(ctxKeyActorID),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, newXPAdjustResponse(res))
}

// limitParam parses ?limit=; absent means 0 (handler default). It writes a
// 400 and returns false on garbage.
func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(c, http.StatusBadRequest, CodeValidation, "limit must be a non-negative integer", nil)
		return 0, false
	}
	return n, true
}
