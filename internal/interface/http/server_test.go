package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tracks-academy/progress-ledger/internal/application/command"
	"github.com/tracks-academy/progress-ledger/internal/application/query"
	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/messaging"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/memory"
	"github.com/tracks-academy/progress-ledger/internal/interface/http/handlers"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

const adminToken = "s3cret-admin-token"

type testAPI struct {
	db      *memory.DB
	handler http.Handler
	health  *handlers.HealthChecker
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	db := memory.Open()
	db.SetClock(func() time.Time { return now })
	log := logger.Nop()
	bus := messaging.NewInMemoryEventBus(messaging.Config{AsyncMode: false, Logger: log})
	t.Cleanup(func() { _ = bus.Close() })

	learners := memory.NewLearnerRepository(db)
	cat := memory.NewCatalogRepository(db)
	subs := memory.NewSubmissionRepository(db)
	xpLedger := command.NewXPLedger(memory.NewLedgerRepository(db), bus, log)

	checkinCfg := command.DefaultPerformCheckinConfig()
	checkinCfg.Now = func() time.Time { return now }

	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	require.NoError(t, err)

	health := handlers.NewHealthChecker("test")
	cfg := DefaultConfig()
	cfg.Mode = gin.TestMode
	cfg.AdminTokenHash = string(hash)

	srv := NewServer(cfg, Dependencies{
		Checkin:      command.NewPerformCheckinHandler(memory.NewCheckinRepository(db), bus, checkinCfg, log),
		ToggleLesson: command.NewToggleLessonHandler(learners, cat, cat, bus, log),
		ToggleCustom: command.NewToggleCustomItemHandler(memory.NewCustomRepository(db), bus, log),
		SubmitProof:  command.NewSubmitTaskProofHandler(learners, cat, subs, bus, log),
		Review:       command.NewReviewSubmissionHandler(subs, cat, bus, log),
		AdjustXP:     command.NewAdjustXPHandler(xpLedger, log),
		GetProgress:  query.NewGetProgressHandler(learners, cat, cat, subs),
		GetCheckin:   query.NewGetCheckinHandler(memory.NewCheckinRepository(db)),
		Leaderboard:  query.NewGetLeaderboardHandler(learners, nil, nil, log),
		TeamMembers:  query.NewGetTeamMembersHandler(learners),
		XPHistory:    query.NewGetXPHistoryHandler(learners, memory.NewLedgerRepository(db)),
		Activities:   query.NewGetActivitiesHandler(learners, memory.NewActivityRepository(db)),
		Health:       health,
		Logger:       log,
	})
	return &testAPI{db: db, handler: srv.Handler(), health: health}
}

type call struct {
	method, path string
	body         any
	token        string
	headers      map[string]string
}

func (a *testAPI) do(t *testing.T, c call) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := c.body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env Envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func dataMap(t *testing.T, env Envelope) map[string]any {
	t.Helper()
	m, ok := env.Data.(map[string]any)
	require.True(t, ok, "data is %T", env.Data)
	return m
}

func TestCheckin_RepeatIsRefusedNotFailed(t *testing.T) {
	api := newTestAPI(t)
	id := api.db.AddLearner(learner.Learner{FullName: "Salma"})
	path := "/api/v1/learners/" + id + "/checkins"
	body := map[string]string{"track": "data", "date": "2024-03-10"}

	rec, env := api.do(t, call{method: http.MethodPost, path: path, body: body})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.EqualValues(t, 5, dataMap(t, env)["xp_awarded"])
	assert.EqualValues(t, 1, dataMap(t, env)["streak_days"])
	assert.NotEmpty(t, env.RequestID)

	rec, env = api.do(t, call{method: http.MethodPost, path: path, body: body})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "ALREADY_CHECKED_IN", env.Reason)
	assert.Nil(t, env.Error)

	rec, env = api.do(t, call{method: http.MethodGet, path: "/api/v1/learners/" + id + "/checkins/2024-03-10"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, dataMap(t, env)["data"])
	assert.Equal(t, false, dataMap(t, env)["lang"])
}

func TestCheckin_ValidationDetails(t *testing.T) {
	api := newTestAPI(t)
	id := api.db.AddLearner(learner.Learner{FullName: "Omar"})

	rec, env := api.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/learners/" + id + "/checkins",
		body:   map[string]string{"track": "english", "date": "10/03/2024"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeValidation, env.Error.Code)
	details, ok := env.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "must be one of data, lang, soft", details["track"])
	assert.Contains(t, details, "date")
}

func TestMalformedBody(t *testing.T) {
	api := newTestAPI(t)
	id := api.db.AddLearner(learner.Learner{FullName: "Omar"})

	rec, env := api.do(t, call{method: http.MethodPost, path: "/api/v1/learners/" + id + "/checkins", body: "{not json"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)

	rec, env = api.do(t, call{method: http.MethodPut, path: "/api/v1/learners/" + id + "/lessons/" + shared.NewID() + "/watched", body: map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Details, "watched")
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t)

	rec, env := api.do(t, call{method: http.MethodGet, path: "/api/v1/learners/" + shared.NewID() + "/progress"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error.Code)

	rec, env = api.do(t, call{method: http.MethodGet, path: "/api/v1/learners/not-a-uuid/progress"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)

	rec, _ = api.do(t, call{method: http.MethodGet, path: "/api/v1/leaderboard?limit=abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = api.do(t, call{method: http.MethodGet, path: "/api/v1/nowhere"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error.Code)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{shared.Validation("x", "Op", "bad"), http.StatusBadRequest, CodeValidation},
		{shared.NotFound("x", "Op", "missing"), http.StatusNotFound, CodeNotFound},
		{shared.Conflict("x", "Op", "frozen"), http.StatusConflict, CodeConflict},
		{shared.Transient("x", "Op", errors.New("conn reset")), http.StatusServiceUnavailable, CodeStoreUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code)
	}
}

func TestAdminAuth(t *testing.T) {
	api := newTestAPI(t)
	id := api.db.AddLearner(learner.Learner{FullName: "Huda"})
	path := "/api/v1/admin/learners/" + id + "/xp"
	body := map[string]any{"amount": 30, "direction": "credit"}

	rec, env := api.do(t, call{method: http.MethodPost, path: path, body: body})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, env.Error.Code)

	rec, _ = api.do(t, call{method: http.MethodPost, path: path, body: body, token: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = api.do(t, call{method: http.MethodPost, path: path, body: body, token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 30, dataMap(t, env)["xp_total"])

	rec, env = api.do(t, call{method: http.MethodPost, path: path, token: adminToken,
		body: map[string]any{"amount": 50, "direction": "debit"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, dataMap(t, env)["xp_total"])
	assert.Equal(t, true, dataMap(t, env)["clamped"])

	rec, env = api.do(t, call{method: http.MethodGet, path: "/api/v1/learners/" + id + "/xp-events?limit=10"})
	require.Equal(t, http.StatusOK, rec.Code)
	events, ok := env.Data.([]any)
	require.True(t, ok)
	assert.Len(t, events, 2)
}

func TestSubmitAndReview(t *testing.T) {
	api := newTestAPI(t)
	learnerID := api.db.AddLearner(learner.Learner{FullName: "Yusuf"})
	reviewerID := api.db.AddLearner(learner.Learner{FullName: "Mentor"})
	taskID := api.db.AddTask(catalog.Task{Title: "Clean a dataset", Track: shared.TrackData, XP: 20, Published: true})

	rec, env := api.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/learners/" + learnerID + "/tasks/" + taskID + "/submission",
		body:   map[string]string{"proof": "https://example.com/notebook", "proof_type": "link"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sub := dataMap(t, env)
	assert.Equal(t, "submitted", sub["status"])
	subID := sub["id"].(string)

	review := "/api/v1/admin/submissions/" + subID + "/review"
	rec, env = api.do(t, call{method: http.MethodPost, path: review, token: adminToken,
		body: map[string]any{"decision": "approve"}, headers: map[string]string{"X-User-ID": reviewerID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", dataMap(t, env)["status"])
	assert.EqualValues(t, 20, dataMap(t, env)["xp_awarded"])

	// A second approve is answered but changes nothing.
	rec, env = api.do(t, call{method: http.MethodPost, path: review, token: adminToken, body: map[string]any{"decision": "approve"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, dataMap(t, env)["already_reviewed"])

	rec, env = api.do(t, call{method: http.MethodGet, path: "/api/v1/learners/" + learnerID + "/progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 20, dataMap(t, env)["xp_total"])
	assert.EqualValues(t, 100, dataMap(t, env)["tasks"])

	rec, env = api.do(t, call{method: http.MethodPost, path: review, token: adminToken, body: map[string]any{"decision": "maybe"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Details, "decision")
}

func TestLeaderboardAndTeam(t *testing.T) {
	api := newTestAPI(t)
	team := shared.NewID()
	api.db.AddTeam(team)
	first := api.db.AddLearner(learner.Learner{FullName: "A", XPTotal: 50, TeamID: &team})
	api.db.AddLearner(learner.Learner{FullName: "B", XPTotal: 10, TeamID: &team})

	rec, env := api.do(t, call{method: http.MethodGet, path: "/api/v1/leaderboard?limit=5"})
	require.Equal(t, http.StatusOK, rec.Code)
	lb := dataMap(t, env)
	assert.Equal(t, query.SourceStore, lb["source"])
	entries := lb["entries"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0].(map[string]any)["learner_id"])

	rec, env = api.do(t, call{method: http.MethodGet, path: "/api/v1/teams/" + team + "/members"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 60, dataMap(t, env)["total_xp"])
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	api.health.AddCheck("postgres", func(context.Context) error { return nil })
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	api.health.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "failing: redis")
}

func TestRequestIDIsEchoed(t *testing.T) {
	api := newTestAPI(t)
	rec, env := api.do(t, call{method: http.MethodGet, path: "/api/v1/leaderboard", headers: map[string]string{"X-Request-ID": "req-123"}})
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-123", env.RequestID)
}

func TestReview_ReviewerHeaderMustBeLearnerID(t *testing.T) {
	api := newTestAPI(t)
	learnerID := api.db.AddLearner(learner.Learner{FullName: "Yusuf"})
	taskID := api.db.AddTask(catalog.Task{Title: "Clean a dataset", Track: shared.TrackData, XP: 20, Published: true})

	rec, env := api.do(t, call{
		method: http.MethodPost,
		path:   "/api/v1/learners/" + learnerID + "/tasks/" + taskID + "/submission",
		body:   map[string]string{"proof": "https://example.com/notebook", "proof_type": "link"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	review := "/api/v1/admin/submissions/" + dataMap(t, env)["id"].(string) + "/review"
	approve := map[string]any{"decision": "approve"}

	rec, env = api.do(t, call{method: http.MethodPost, path: review, token: adminToken, body: approve,
		headers: map[string]string{"X-User-ID": "alice"}})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, CodeValidation, env.Error.Code)

	// Well-formed UUID, but nobody by that id.
	rec, env = api.do(t, call{method: http.MethodPost, path: review, token: adminToken, body: approve,
		headers: map[string]string{"X-User-ID": shared.NewID()}})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, CodeValidation, env.Error.Code)

	// Ни один отказ ничего не изменил.
	rec, env = api.do(t, call{method: http.MethodGet, path: "/api/v1/learners/" + learnerID + "/progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, dataMap(t, env)["xp_total"])

	rec, env = api.do(t, call{method: http.MethodPost, path: review, token: adminToken, body: approve})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", dataMap(t, env)["status"])
	assert.Nil(t, dataMap(t, env)["already_reviewed"])
}

func TestAdminAuth_MalformedActorHeader(t *testing.T) {
	api := newTestAPI(t)
	id := api.db.AddLearner(learner.Learner{FullName: "Huda"})

	rec, env := api.do(t, call{method: http.MethodPost, path: "/api/v1/admin/learners/" + id + "/xp", token: adminToken,
		body: map[string]any{"amount": 30, "direction": "credit"}, headers: map[string]string{"X-User-ID": "alice"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)
	assert.Equal(t, "X-User-ID must be a UUID", env.Error.Message)
}
