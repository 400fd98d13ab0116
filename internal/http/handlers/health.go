package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck is a named dependency probe used by /readyz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	appName    string
	appVersion string
	checks     []HealthCheck
	timeout    time.Duration
}

func NewHealthHandler(appName, appVersion string, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		appName:    appName,
		appVersion: appVersion,
		checks:     checks,
		timeout:    time.Second,
	}
}

func (h *HealthHandler) Root(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Welcome to " + h.appName,
		"version": h.appVersion,
		"docs":    "/docs",
	})
}

// Healthz only reports that the process is serving.
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.appVersion,
	})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	results := make(map[string]string, len(h.checks))
	ready := true

	for _, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
		err := check.Ping(cctx)
		cancel()

		if err != nil {
			ready = false
			results[check.Name] = err.Error()
			continue
		}
		results[check.Name] = "ok"
	}

	if !ready {
		RespondServiceUnavailable(ctx, "Not ready", gin.H{"checks": results})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}
