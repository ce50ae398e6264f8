package handler

import (
	"net/http"
	"runtime"
	"time"

	"staffhub-api/internal/cache"
	"staffhub-api/internal/service"
	"staffhub-api/pkg/apierror"
	"staffhub-api/pkg/response"

	"go.uber.org/zap"
)

// AdminHandler handles cache administration requests.
type AdminHandler struct {
	warmer      *service.Warmer
	invalidator *service.Invalidator
	cache       *cache.Accessor
	cacheType   string
	dbType      string
	startTime   time.Time
	logger      *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	warmer *service.Warmer,
	invalidator *service.Invalidator,
	accessor *cache.Accessor,
	cacheType, dbType string,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		warmer:      warmer,
		invalidator: invalidator,
		cache:       accessor,
		cacheType:   cacheType,
		dbType:      dbType,
		startTime:   time.Now(),
		logger:      logger.Named("admin"),
	}
}

// WarmAll handles POST /api/v1/admin/cache/warm
func (h *AdminHandler) WarmAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.warmer.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual warming pass failed", zap.Error(err))
		response.Error(w, apierror.ServiceUnavailable("warming pass failed"))
		return
	}
	response.OK(w, report)
}

// WarmTenant handles POST /api/v1/admin/cache/warm/{tenantID}
func (h *AdminHandler) WarmTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, perr := pathParam(r, "tenantID")
	if perr != nil {
		response.Error(w, perr)
		return
	}

	if err := h.warmer.WarmTenant(r.Context(), tenantID); err != nil {
		h.logger.Error("manual tenant warming failed", zap.String("tenant_id", tenantID), zap.Error(err))
		response.Error(w, apierror.ServiceUnavailable("tenant warming failed"))
		return
	}
	response.OK(w, map[string]interface{}{
		"tenant_id": tenantID,
		"status":    "warmed",
	})
}

// InvalidateTenant handles DELETE /api/v1/admin/cache/tenants/{tenantID}
func (h *AdminHandler) InvalidateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, perr := pathParam(r, "tenantID")
	if perr != nil {
		response.Error(w, perr)
		return
	}

	result := h.invalidator.InvalidateTenant(r.Context(), tenantID)
	response.OK(w, map[string]interface{}{
		"tenant_id":    tenantID,
		"invalidation": result,
	})
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType

	cacheStatus := "unavailable"
	if h.cache.IsAvailable(ctx) {
		cacheStatus = "connected"
	}
	stats["cache"] = map[string]interface{}{
		"type":   h.cacheType,
		"status": cacheStatus,
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
