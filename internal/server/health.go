package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Health status constants for health check responses.
const (
	healthStatusOK       = "ok"
	healthStatusNotReady = "not ready"
)

// readinessProbeTimeout bounds the database ping so a hung pool cannot
// stall the probe.
const readinessProbeTimeout = 2 * time.Second

// HealthChecker provides liveness and readiness endpoints for
// orchestration probes.
type HealthChecker struct {
	ready     atomic.Bool
	db        Pinger
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker. A nil db skips the database
// readiness check.
func NewHealthChecker(db Pinger) *HealthChecker {
	h := &HealthChecker{
		db:        db,
		startTime: time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Liveness answers whether the process is running. It never consults
// dependencies; a broken database must not get the process restarted.
func (h *HealthChecker) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": healthStatusOK,
		"uptime": time.Since(h.startTime).Truncate(time.Second).String(),
	})
}

// Readiness answers whether the server should receive traffic. The
// database connection is part of the contract: without it every request
// would fail anyway.
func (h *HealthChecker) Readiness(c *gin.Context) {
	checks := make(map[string]string)
	allOk := true

	if h.ready.Load() {
		checks["ready"] = healthStatusOK
	} else {
		checks["ready"] = healthStatusNotReady
		allOk = false
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessProbeTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			allOk = false
		} else {
			checks["database"] = healthStatusOK
		}
	}

	status := healthStatusOK
	code := http.StatusOK
	if !allOk {
		status = healthStatusNotReady
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
