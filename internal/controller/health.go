package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Pinger is anything whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health serves liveness and readiness probes.
type Health struct {
	db    Pinger
	redis *redis.Client
}

func NewHealth(db Pinger, rdb *redis.Client) *Health {
	return &Health{db: db, redis: rdb}
}

// Live returns 200 if the process is alive. Used by load balancers.
func (h *Health) Live(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 if the database (and Redis, when configured) answer.
func (h *Health) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database ping failed"})
		return
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
	}
	c.String(http.StatusOK, "OK")
}
