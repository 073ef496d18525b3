package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tracker/internal/analytics"
)

// Reporter runs the analytics entry points.
type Reporter interface {
	Burndown(ctx context.Context, q analytics.Query) (analytics.BurndownSeries, error)
	TimeReport(ctx context.Context, q analytics.Query) (analytics.TimeReport, error)
	Performance(ctx context.Context, q analytics.Query) (analytics.PerformanceReport, error)
	Overview(ctx context.Context, q analytics.Query) (analytics.Overview, error)
}

// Server provides HTTP handlers for the progress reports.
type Server struct {
	engine  *gin.Engine
	reports Reporter
	logger  *slog.Logger
	timeout time.Duration
}

// New constructs the HTTP server with routes and middleware configured.
func New(reports Reporter, logger *slog.Logger, timeout time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:  router,
		reports: reports,
		logger:  logger,
		timeout: timeout,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		reports := api.Group("/projects/:id/reports", s.requireCaller, s.withTimeout)
		{
			reports.GET("/burndown", s.handleBurndown)
			reports.GET("/time", s.handleTimeReport)
			reports.GET("/performance", s.handlePerformance)
			reports.GET("/overview", s.handleOverview)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// respondError logs the error and returns a JSON payload. Client errors are
// logged at warn level.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	requestID := c.GetString(requestIDKey)
	s.logger.Log(c.Request.Context(), level, "request failed",
		slog.String("path", c.FullPath()),
		slog.Int("status", status),
		slog.String("request_id", requestID),
		slog.String("error", err.Error()),
	)
	c.JSON(status, gin.H{"error": err.Error(), "request_id": requestID})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
