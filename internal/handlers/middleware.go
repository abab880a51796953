package handlers

import (
	"errors"
	"net/http"
	"strings"

	"garage_door/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	pushKeyHeader  = "X-RemoteButtonPushKey"
	identityCtxKey = "callerEmail"
)

// pushKeyMiddleware checks the per-deployment API key. A missing key is
// unauthorized; a wrong key is forbidden.
func (h *Handler) pushKeyMiddleware(c *gin.Context) {
	key := c.GetHeader(pushKeyHeader)
	if key == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Unauthorized (key).",
		})
		return
	}
	if !h.services.VerifyPushKey(key) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Forbidden (key).",
		})
		return
	}
	c.Next()
}

// identityMiddleware parses the bearer token and stores the caller email in
// the request context. Allow-list membership is the services' concern.
func (h *Handler) identityMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Unauthorized (token).",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	email, err := h.services.ParseToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(identityCtxKey, email)
	c.Next()
}

func callerEmail(c *gin.Context) string {
	return c.GetString(identityCtxKey)
}

// serviceError maps domain errors onto HTTP statuses per the error taxonomy:
// authorization -> 403, conflicts and stale state -> 409, bad input -> 400,
// missing state -> 404, everything else -> 500.
func (h *Handler) serviceError(c *gin.Context, err error, logKey string, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden (user)."})
	case errors.Is(err, service.ErrTooSoon):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflict (too many recent requests)."})
	case errors.Is(err, service.ErrStaleEvent):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoCurrentEvent):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		if h.log != nil {
			fields := append([]interface{}{"err", err}, kv...)
			h.log.Errorw(logKey, fields...)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
