package http

import (
	"ShrtLink-Backend/internal/cache"
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProcessorStats состояние обработчика кликов
type ProcessorStats interface {
	GetStats() map[string]interface{}
}

// CacheStats счетчики кеша резолвинга
type CacheStats interface {
	Stats() cache.Stats
}

// HealthHandler обработчик health checks
type HealthHandler struct {
	storage   Pinger
	processor ProcessorStats
	cache     CacheStats
	log       *zap.Logger
	startTime time.Time
}

// NewHealthHandler создает новый health handler; processor и cache могут быть nil
func NewHealthHandler(storage Pinger, processor ProcessorStats, cacheStats CacheStats, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		storage:   storage,
		processor: processor,
		cache:     cacheStats,
		log:       log,
		startTime: time.Now(),
	}
}

// Version версия сборки, перезаписывается через -ldflags
var Version = "1.0.0"

// HealthResponse структура ответа health check
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
	DatabaseStatus string    `json:"database_status"`
	Uptime         string    `json:"uptime,omitempty"`
}

// Health основной health check endpoint
//
//	@Summary	Health check
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, dbStatus, statusCode := "healthy", "healthy", http.StatusOK
	if err := h.storage.Ping(ctx); err != nil {
		status, dbStatus, statusCode = "unhealthy", "unhealthy", http.StatusServiceUnavailable
		h.log.Error("database health check failed", zap.Error(err))
	}

	writeJSON(w, HealthResponse{
		Status:         status,
		Timestamp:      time.Now(),
		Version:        Version,
		DatabaseStatus: dbStatus,
		Uptime:         time.Since(h.startTime).String(),
	}, statusCode)
}

// Ready readiness check endpoint
//
//	@Summary	Readiness check
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Failure	503	{object}	map[string]interface{}
//	@Router		/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	// Без запущенного обработчика кликов аналитика теряется
	if h.processor != nil {
		if started, _ := h.processor.GetStats()["started"].(bool); !started {
			writeJSON(w, map[string]interface{}{
				"status":    "not ready",
				"timestamp": time.Now(),
			}, http.StatusServiceUnavailable)
			return
		}
	}

	writeJSON(w, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now(),
	}, http.StatusOK)
}

// Metrics счетчики обработчика кликов и кеша
//
//	@Summary	Runtime counters
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Router		/metrics [get]
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"timestamp":      time.Now(),
		"version":        Version,
	}
	if h.processor != nil {
		metrics["click_processor"] = h.processor.GetStats()
	}
	if h.cache != nil {
		metrics["resolution_cache"] = h.cache.Stats()
	}

	writeJSON(w, metrics, http.StatusOK)
}
