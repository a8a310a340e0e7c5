package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DennisWilmot/land-mapping-web/internal/middleware"
	"github.com/DennisWilmot/land-mapping-web/internal/repository"
	"github.com/DennisWilmot/land-mapping-web/internal/services"
)

const (
	// APIVersion is the current version of the API
	APIVersion = "0.1.0"
	// HealthCheckTimeout bounds the selection store ping
	HealthCheckTimeout = 2 * time.Second
)

// HealthHandler handles health check and readiness endpoints.
type HealthHandler struct {
	parcels   services.ParcelService
	store     repository.SelectionRepository
	startTime time.Time
	env       string
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(parcels services.ParcelService, store repository.SelectionRepository, env string) *HealthHandler {
	return &HealthHandler{
		parcels:   parcels,
		store:     store,
		startTime: time.Now(),
		env:       env,
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status  string `json:"status"`
	Dataset string `json:"dataset"`
	Store   string `json:"store"`
	Backend string `json:"backend"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	ReloadedAt  *time.Time `json:"reloadedAt,omitempty"`
	Version     string     `json:"version"`
	Environment string     `json:"environment"`
	Uptime      string     `json:"uptime"`
	Storage     string     `json:"storage"`
	Index       string     `json:"spatialIndex,omitempty"`
	Parcels     int        `json:"parcels"`
	Divisions   int        `json:"divisions"`
}

// Health handles GET /health endpoint.
// This is a liveness check that always returns 200 OK.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready endpoint.
// Ready means a parcel snapshot is active and, for networked stores, the
// store answers a ping.
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := ReadyResponse{
		Status:  "ready",
		Dataset: "loaded",
		Store:   "connected",
		Backend: h.store.Name(),
	}

	if !h.parcels.Ready() {
		resp.Status = "not_ready"
		resp.Dataset = "loading"
	}

	if p, ok := h.store.(repository.Pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			if log := middleware.GetLogger(c); log != nil {
				log.Error("Selection store health check failed", err, map[string]interface{}{
					"backend": h.store.Name(),
					"timeout": HealthCheckTimeout.String(),
				})
			}
			resp.Status = "not_ready"
			resp.Store = "disconnected"
		}
	} else {
		resp.Store = "local"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Info handles GET /api/v1/info endpoint.
func (h *HealthHandler) Info(c *gin.Context) {
	resp := InfoResponse{
		Version:     APIVersion,
		Environment: h.env,
		Uptime:      formatUptime(time.Since(h.startTime)),
		Storage:     h.store.Name(),
	}

	if snap, err := h.parcels.Snapshot(); err == nil {
		reloaded := snap.ReloadedAt
		resp.ReloadedAt = &reloaded
		resp.Parcels = snap.Annotated.Stats.Total
		resp.Divisions = len(snap.Resolver.Divisions())
		resp.Index = snap.Resolver.IndexName()
	}

	c.JSON(http.StatusOK, resp)
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
