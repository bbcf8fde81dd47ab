package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is satisfied by *database.DB.
type HealthChecker interface {
	HealthCheck() error
}

// Pinger is satisfied by *services.CacheService.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readyPingTimeout = 2 * time.Second

type HealthHandler struct {
	db    HealthChecker
	cache Pinger
}

// NewHealthHandler creates a health handler. cache may be nil when Redis is
// not configured.
func NewHealthHandler(db HealthChecker, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// GetHealth returns basic health status - always returns 200 if server is running
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"service": "dynasty-values",
	})
}

// GetReady returns 200 only when the database and, if configured, Redis answer.
func (h *HealthHandler) GetReady(c *gin.Context) {
	if err := h.db.HealthCheck(); err != nil {
		notReady(c, "database", err)
		return
	}
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyPingTimeout)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			notReady(c, "redis", err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func notReady(c *gin.Context, dependency string, err error) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"status":     "not_ready",
		"dependency": dependency,
		"error":      err.Error(),
	})
}
