package http

import (
	"ShrtLink-Backend/internal/config"
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/service"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// RedirectHandler обработчик редиректов
type RedirectHandler struct {
	resolver *service.Resolver
	config   *config.URLShortener
	log      *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректов
func NewRedirectHandler(resolver *service.Resolver, cfg *config.URLShortener, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver: resolver,
		config:   cfg,
		log:      log,
	}
}

// UnlockRequest пароль для защищенной ссылки
type UnlockRequest struct {
	Password string `json:"password"`
}

// UnlockResponse адрес назначения после проверки пароля
type UnlockResponse struct {
	URL string `json:"url"`
}

// HandleRedirect обрабатывает редирект по короткому коду или алиасу
//
//	@Summary		Follow a short link
//	@Description	Redirects to the destination. Password protected and expired links redirect to their pages.
//	@Tags			Redirect
//	@Param			code	path	string	true	"Short code or alias"
//	@Success		302		"Redirect to destination"
//	@Failure		404		{object}	map[string]string	"Link not found"
//	@Failure		410		{object}	map[string]string	"Link deactivated or click limit reached"
//	@Router			/{code} [get]
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	dest, err := h.resolver.Resolve(r.Context(), h.visit(r, code))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPasswordRequired):
			http.Redirect(w, r, strings.TrimRight(h.config.PasswordPagePath, "/")+"/"+url.PathEscape(code), http.StatusFound)
		case errors.Is(err, domain.ErrExpired):
			http.Redirect(w, r, h.config.ExpiredPagePath, http.StatusFound)
		default:
			h.log.Debug("redirect refused", zap.String("code", code), zap.Error(err))
			writeServiceError(w, h.log, err, "resolve link")
		}
		return
	}

	// Браузер не должен кешировать редирект, иначе клики не дойдут до аналитики
	w.Header().Set("Cache-Control", "private, max-age=0")
	http.Redirect(w, r, dest, http.StatusFound)
}

// Unlock проверяет пароль ссылки и возвращает адрес назначения
//
//	@Summary		Unlock a password protected link
//	@Tags			Redirect
//	@Accept			json
//	@Produce		json
//	@Param			code	path		string			true	"Short code or alias"
//	@Param			request	body		UnlockRequest	true	"Link password"
//	@Success		200		{object}	UnlockResponse
//	@Failure		401		{object}	map[string]string	"Invalid password"
//	@Failure		404		{object}	map[string]string	"Link not found"
//	@Failure		410		{object}	map[string]string	"Link expired, deactivated or click limit reached"
//	@Router			/{code}/unlock [post]
func (h *RedirectHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeError(w, "Password is required", http.StatusBadRequest)
		return
	}

	dest, err := h.resolver.ResolveWithPassword(r.Context(), req.Password, h.visit(r, code))
	if err != nil {
		writeServiceError(w, h.log, err, "unlock link")
		return
	}

	writeJSON(w, UnlockResponse{URL: dest}, http.StatusOK)
}

func (h *RedirectHandler) visit(r *http.Request, code string) service.Visit {
	return service.Visit{
		Code:      code,
		IP:        extractIPAddress(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
}

// extractIPAddress извлекает IP адрес из запроса с учетом прокси
func extractIPAddress(r *http.Request) string {
	// Проверяем заголовки прокси в порядке приоритета
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// X-Forwarded-For может содержать список IP через запятую
		first, _, _ := strings.Cut(ip, ",")
		return strings.TrimSpace(first)
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
