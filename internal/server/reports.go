package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tracker/internal/analytics"
)

type reportRequest struct {
	SprintID *int64 `form:"sprint_id" binding:"omitempty,gt=0"`
	Start    string `form:"start"`
	End      string `form:"end"`
	GroupBy  string `form:"group_by" binding:"omitempty,oneof=day week month"`
	At       string `form:"at"`
}

// handleBurndown returns the burndown series of a project or sprint.
func (s *Server) handleBurndown(c *gin.Context) {
	q, ok := s.bindQuery(c)
	if !ok {
		return
	}
	series, err := s.reports.Burndown(c.Request.Context(), q)
	if err != nil {
		s.respondReportError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"burndown": series})
}

// handleTimeReport returns logged time grouped by period and user.
func (s *Server) handleTimeReport(c *gin.Context) {
	q, ok := s.bindQuery(c)
	if !ok {
		return
	}
	report, err := s.reports.TimeReport(c.Request.Context(), q)
	if err != nil {
		s.respondReportError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"time_report": report})
}

// handlePerformance returns member score cards.
func (s *Server) handlePerformance(c *gin.Context) {
	q, ok := s.bindQuery(c)
	if !ok {
		return
	}
	report, err := s.reports.Performance(c.Request.Context(), q)
	if err != nil {
		s.respondReportError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"performance": report})
}

// handleOverview returns the headline project summary.
func (s *Server) handleOverview(c *gin.Context) {
	q, ok := s.bindQuery(c)
	if !ok {
		return
	}
	overview, err := s.reports.Overview(c.Request.Context(), q)
	if err != nil {
		s.respondReportError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"overview": overview})
}

// bindQuery turns path, header and query parameters into an analytics.Query.
func (s *Server) bindQuery(c *gin.Context) (analytics.Query, bool) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return analytics.Query{}, false
	}

	var req reportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return analytics.Query{}, false
	}

	q := analytics.Query{
		CallerID:  c.GetInt64(callerKey),
		ProjectID: projectID,
		SprintID:  req.SprintID,
		Start:     req.Start,
		End:       req.End,
		GroupBy:   req.GroupBy,
	}
	if req.At != "" {
		at, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid at: %w", err))
			return analytics.Query{}, false
		}
		q.At = at
	}
	return q, true
}

// statusClientClosedRequest is the nginx convention for a caller that went
// away before the response was written.
const statusClientClosedRequest = 499

// respondReportError maps the analytics error taxonomy onto HTTP statuses.
// Unexpected failures are logged in full and answered with a generic message.
func (s *Server) respondReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analytics.ErrNotFound):
		s.respondError(c, http.StatusNotFound, err)
	case errors.Is(err, analytics.ErrForbidden):
		s.respondError(c, http.StatusForbidden, err)
	case errors.Is(err, analytics.ErrInvalidRange):
		s.respondError(c, http.StatusBadRequest, err)
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(c, http.StatusGatewayTimeout, errors.New("report timed out"))
	case errors.Is(err, context.Canceled):
		s.respondError(c, statusClientClosedRequest, errors.New("request cancelled"))
	default:
		requestID := c.GetString(requestIDKey)
		s.logger.Error("report failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "request_id": requestID})
	}
}
