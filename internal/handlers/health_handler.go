package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

var errCatalogCold = errors.New("catalog cache not warmed")

// readinessProbe fails with reason when its dependency is not usable
type readinessProbe struct {
	reason string
	check  func(ctx context.Context) error
}

// HealthHandler serves the readiness probe used by the load balancer
type HealthHandler struct {
	probes []readinessProbe
}

// NewHealthHandler checks the database with ping, then the catalog cache
// with catalogReady. The first failing probe decides the response.
func NewHealthHandler(ping func(ctx context.Context) error, catalogReady func() bool) *HealthHandler {
	return &HealthHandler{probes: []readinessProbe{
		{reason: "database unreachable", check: ping},
		{reason: "catalog cache not initialized", check: func(context.Context) error {
			if !catalogReady() {
				return errCatalogCold
			}
			return nil
		}},
	}}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	for _, p := range h.probes {
		if err := p.check(ctx); err != nil {
			attachError(c, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": p.reason})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
