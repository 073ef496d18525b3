package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	callerHeader    = "X-User-ID"

	requestIDKey = "request_id"
	callerKey    = "caller_id"
)

// requestID tags every request with an id, reusing one supplied upstream.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requireCaller reads the caller identity set by the upstream auth gateway.
func (s *Server) requireCaller(c *gin.Context) {
	raw := strings.TrimSpace(c.GetHeader(callerHeader))
	id, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}
	c.Set(callerKey, id)
	c.Next()
}

// withTimeout bounds the report computation. An abandoned report returns an
// error and never a partial body.
func (s *Server) withTimeout(c *gin.Context) {
	if s.timeout <= 0 {
		c.Next()
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
