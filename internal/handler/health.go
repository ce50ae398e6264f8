package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"staffhub-api/internal/cache"
	"staffhub-api/pkg/response"
)

// StartTime tracks when the server started for uptime calculation
var StartTime = time.Now()

// Pinger is the source-of-truth connection check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the health endpoints.
type Handler struct {
	cache   *cache.Accessor
	db      Pinger
	service string
	version string
}

// New creates a new handler.
func New(accessor *cache.Accessor, db Pinger, service, version string) *Handler {
	return &Handler{
		cache:   accessor,
		db:      db,
		service: service,
		version: version,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	response.OK(w, resp)
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (h *Handler) dbStatus(ctx context.Context) string {
	if h.db == nil {
		return "not_configured"
	}
	if err := h.db.Ping(ctx); err != nil {
		return "error"
	}
	return "ok"
}

// cacheStatus is "degraded" rather than "error": every read still computes
// directly when the store is gone.
func (h *Handler) cacheStatus(ctx context.Context) string {
	if h.cache.IsAvailable(ctx) {
		return "ok"
	}
	return "degraded"
}

// Ready handles GET /api/v1/ready. Only the database gates readiness.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := []Check{
		{Name: "api", Status: "ok"},
		{Name: "database", Status: h.dbStatus(ctx)},
		{Name: "cache", Status: h.cacheStatus(ctx)},
	}

	ready := checks[1].Status == "ok"

	resp := ReadyResponse{
		Ready:     ready,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, resp)
}

// StatusChecks represents the checks in status response
type StatusChecks struct {
	Database string  `json:"database"`
	Cache    string  `json:"cache"`
	MemoryMB float64 `json:"memory_mb"`
}

// StatusResponse represents the unified status response for monitoring
type StatusResponse struct {
	Service       string       `json:"service"`
	Status        string       `json:"status"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	PingMS        int64        `json:"ping_ms"`
	Checks        StatusChecks `json:"checks"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	requestStart := time.Now()
	ctx := r.Context()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	checks := StatusChecks{
		Database: h.dbStatus(ctx),
		Cache:    h.cacheStatus(ctx),
		MemoryMB: float64(int(memoryMB*100)) / 100,
	}

	status := "ok"
	if checks.Database != "ok" || checks.Cache != "ok" {
		status = "degraded"
	}

	resp := StatusResponse{
		Service:       h.service,
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(StartTime).Seconds()),
		PingMS:        time.Since(requestStart).Milliseconds(),
		Checks:        checks,
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
