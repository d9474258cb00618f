package http

import (
	"ShrtLink-Backend/internal/analytics"
	"ShrtLink-Backend/internal/auth"
	"ShrtLink-Backend/internal/config"
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/service"
	"encoding/json"
	"errors"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Dependencies сервисы, которые нужны HTTP слою
type Dependencies struct {
	Resolver       *service.Resolver
	Shortener      *service.URLShortenerService
	Aggregator     *analytics.Aggregator
	Storage        Pinger
	Processor      ProcessorStats
	Cache          CacheStats
	AuthMiddleware *auth.Middleware
	URLShortener   *config.URLShortener
}

// Server HTTP сервер с обработчиками
type Server struct {
	linksHandler     *LinksHandler
	redirectHandler  *RedirectHandler
	analyticsHandler *AnalyticsHandler
	healthHandler    *HealthHandler
	authMiddleware   *auth.Middleware
	log              *zap.Logger
}

// NewServer создает новый HTTP сервер
func NewServer(deps Dependencies, log *zap.Logger) *Server {
	return &Server{
		linksHandler:     NewLinksHandler(deps.Shortener, log),
		redirectHandler:  NewRedirectHandler(deps.Resolver, deps.URLShortener, log),
		analyticsHandler: NewAnalyticsHandler(deps.Aggregator, log),
		healthHandler:    NewHealthHandler(deps.Storage, deps.Processor, deps.Cache, log),
		authMiddleware:   deps.AuthMiddleware,
		log:              log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	m := s.authMiddleware

	// Health checks (без аутентификации)
	mux.HandleFunc("GET /health", s.healthHandler.Health)
	mux.HandleFunc("GET /ready", s.healthHandler.Ready)
	mux.HandleFunc("GET /metrics", s.healthHandler.Metrics)

	// Swagger документация
	mux.Handle("GET /api/v1/", httpSwagger.WrapHandler)

	// Создание ссылки доступно и анонимно
	mux.HandleFunc("POST /api/shorten", m.OptionalAuth(s.linksHandler.CreateLink))
	mux.HandleFunc("POST /api/shorten/bulk", m.RequireAuth(s.linksHandler.BulkCreate))
	mux.HandleFunc("PATCH /api/links/{id}", m.RequireAuth(s.linksHandler.UpdateLink))
	mux.HandleFunc("DELETE /api/links/{id}", m.RequireAuth(s.linksHandler.DeleteLink))

	// Аналитика
	mux.HandleFunc("GET /api/analytics/links/{id}", m.RequireAuth(s.analyticsHandler.LinkAnalytics))
	mux.HandleFunc("GET /api/analytics/dashboard", m.RequireAuth(s.analyticsHandler.Dashboard))
	mux.HandleFunc("GET /api/analytics/admin/dashboard", m.RequireAuth(s.analyticsHandler.AdminDashboard))

	// Редирект (без аутентификации); системные пути выше более специфичны
	mux.HandleFunc("GET /{code}", s.redirectHandler.HandleRedirect)
	mux.HandleFunc("POST /{code}/unlock", s.redirectHandler.Unlock)

	return RequestLogger(s.log)(m.CORS(mux))
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}

// writeServiceError переводит доменную ошибку в HTTP статус
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, action string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, "Link not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, "Access denied", http.StatusForbidden)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, "Alias already exists", http.StatusConflict)
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, "Link quota exceeded. Upgrade your plan or delete unused links.", http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, "Invalid password", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrExpired):
		writeJSON(w, map[string]string{"error": "Link has expired", "reason": "expired"}, http.StatusGone)
	case errors.Is(err, domain.ErrGone):
		writeJSON(w, map[string]string{"error": "Link is no longer available", "reason": domain.GoneReason(err)}, http.StatusGone)
	default:
		log.Error("failed to "+action, zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}
