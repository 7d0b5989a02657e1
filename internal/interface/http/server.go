// Package http exposes the ledger over a JSON API built on gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tracks-academy/progress-ledger/internal/application/command"
	"github.com/tracks-academy/progress-ledger/internal/application/query"
	"github.com/tracks-academy/progress-ledger/internal/interface/http/handlers"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	AllowedOrigins []string

	// AdminTokenHash is a bcrypt hash of the admin bearer token.
	AdminTokenHash string

	// Mode is gin's mode: debug, release or test.
	Mode string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		AllowedOrigins: []string{"*"},
		Mode:           gin.ReleaseMode,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Dependencies contains the application handlers served over HTTP.
type Dependencies struct {
	// Commands
	Checkin      *command.PerformCheckinHandler
	ToggleLesson *command.ToggleLessonHandler
	ToggleCustom *command.ToggleCustomItemHandler
	SubmitProof  *command.SubmitTaskProofHandler
	Review       *command.ReviewSubmissionHandler
	AdjustXP     *command.AdjustXPHandler

	// Queries
	GetProgress *query.GetProgressHandler
	GetCheckin  *query.GetCheckinHandler
	Leaderboard *query.GetLeaderboardHandler
	TeamMembers *query.GetTeamMembersHandler
	XPHistory   *query.GetXPHistoryHandler
	Activities  *query.GetActivitiesHandler

	Health *handlers.HealthChecker
	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	log        *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer builds the router and the underlying http.Server.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.Health == nil {
		deps.Health = handlers.NewHealthChecker("")
	}
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	installValidator()

	s := &Server{
		config: config,
		deps:   deps,
		log:    deps.Logger.With(logger.Component("http")),
	}
	s.engine = s.newEngine()
	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      s.engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		requestIDMiddleware(s.log),
		loggingMiddleware(s.log),
		recoveryMiddleware(s.log),
		corsMiddleware(s.config.AllowedOrigins),
		securityHeadersMiddleware(),
		bodyLimitMiddleware(maxBodyBytes),
	)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, CodeNotFound, "route not found", nil)
	})
	r.NoMethod(func(c *gin.Context) {
		respondError(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Health
	// ─────────────────────────────────────────────────────────────────────────
	r.GET("/health", s.deps.Health.Live)
	r.GET("/ready", s.deps.Health.Ready)

	api := r.Group("/api/v1")
	{
		learners := api.Group("/learners/:id")
		learners.GET("/progress", s.handleGetProgress)
		learners.PUT("/lessons/:lessonId/watched", s.handleToggleLesson)
		learners.POST("/tasks/:taskId/submission", s.handleSubmitProof)
		learners.POST("/checkins", s.handleCheckin)
		learners.GET("/checkins/:date", s.handleGetCheckin)
		learners.GET("/xp-events", s.handleXPHistory)
		learners.GET("/activities", s.handleActivities)

		api.PUT("/custom/:kind/:id/completed", s.handleToggleCustom)
		api.GET("/leaderboard", s.handleLeaderboard)
		api.GET("/teams/:id/members", s.handleTeamMembers)
	}

	admin := api.Group("/admin", adminAuth(s.config.AdminTokenHash))
	{
		admin.POST("/submissions/:id/review", s.handleReview)
		admin.POST("/learners/:id/xp", s.handleAdjustXP)
	}

	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.log.Info("starting HTTP server", logger.String("address", s.config.Address()))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
