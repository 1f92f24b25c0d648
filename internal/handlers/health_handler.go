package handlers

import (
	"context"
	"net/http"

	"github.com/codecom/codecom-api/internal/cache"
	"github.com/gin-gonic/gin"
)

// RelayStatusProvider returns the last known mail relay status
type RelayStatusProvider interface {
	Get(ctx context.Context) cache.RelayStatus
}

type HealthHandler struct {
	relay RelayStatusProvider
}

func NewHealthHandler(relay RelayStatusProvider) *HealthHandler {
	return &HealthHandler{
		relay: relay,
	}
}

// Healthcheck always answers 200 while the process serves requests; a missing
// or unreachable relay is reported as "degraded".
func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	relay := h.relay.Get(c.Request.Context())

	status := "ok"
	if !relay.Configured || !relay.Reachable {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"relay":  relay,
	})
}
