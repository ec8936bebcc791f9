package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping           func(ctx context.Context) error
	stats          func() any
	isShuttingDown func() bool
}

// NewHealthHandler takes an optional dependency ping (nil when nothing external is required),
// an optional stats snapshot for /healthz, and the shutdown flag.
func NewHealthHandler(ping func(ctx context.Context) error, stats func() any, isShuttingDown func() bool) *HealthHandler {
	if isShuttingDown == nil {
		isShuttingDown = func() bool { return false }
	}
	return &HealthHandler{ping: ping, stats: stats, isShuttingDown: isShuttingDown}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.stats != nil {
		body["stats"] = h.stats()
	}
	ctx.JSON(http.StatusOK, body)
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.isShuttingDown() {
		RespondUnavailable(ctx, "shutting_down", "Server is shutting down")
		return
	}

	if h.ping != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 500*time.Millisecond)
		defer cancel()

		if err := h.ping(pingCtx); err != nil {
			RespondUnavailable(ctx, "not_ready", "Cache backend not reachable")
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
