package http

import (
	"ShrtLink-Backend/internal/analytics"
	"ShrtLink-Backend/internal/auth"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// AnalyticsHandler отчеты по кликам
type AnalyticsHandler struct {
	aggregator *analytics.Aggregator
	log        *zap.Logger
}

// NewAnalyticsHandler создает обработчик аналитики
func NewAnalyticsHandler(aggregator *analytics.Aggregator, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		aggregator: aggregator,
		log:        log,
	}
}

// LinkAnalytics отчет по одной ссылке
//
//	@Summary		Link analytics
//	@Description	Daily series and breakdowns for the last N UTC days, today included.
//	@Tags			Analytics
//	@Produce		json
//	@Param			id		path		int	true	"Link ID"
//	@Param			days	query		int	false	"Window size in days (default 30, max 365)"
//	@Success		200		{object}	analytics.LinkReport
//	@Failure		400		{object}	map[string]string	"Invalid parameters"
//	@Failure		401		{object}	map[string]string	"Unauthorized"
//	@Failure		403		{object}	map[string]string	"Access denied"
//	@Failure		404		{object}	map[string]string	"Link not found"
//	@Security		BearerAuth
//	@Router			/api/analytics/links/{id} [get]
func (h *AnalyticsHandler) LinkAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	linkID, err := pathID(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 0 означает окно по умолчанию
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		if days, err = strconv.Atoi(raw); err != nil {
			writeError(w, "days must be an integer", http.StatusBadRequest)
			return
		}
	}

	report, err := h.aggregator.LinkReport(r.Context(), linkID, userID, days)
	if err != nil {
		writeServiceError(w, h.log, err, "build link report")
		return
	}

	writeJSON(w, report, http.StatusOK)
}

// Dashboard сводка по ссылкам пользователя
//
//	@Summary	User dashboard
//	@Tags		Analytics
//	@Produce	json
//	@Success	200	{object}	analytics.Dashboard
//	@Failure	401	{object}	map[string]string	"Unauthorized"
//	@Security	BearerAuth
//	@Router		/api/analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	dash, err := h.aggregator.UserDashboard(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "build dashboard")
		return
	}

	writeJSON(w, dash, http.StatusOK)
}

// AdminDashboard сводка по всем ссылкам и пользователям
//
//	@Summary	Admin dashboard
//	@Tags		Analytics
//	@Produce	json
//	@Success	200	{object}	analytics.AdminDashboard
//	@Failure	401	{object}	map[string]string	"Unauthorized"
//	@Failure	403	{object}	map[string]string	"Access denied"
//	@Security	BearerAuth
//	@Router		/api/analytics/admin/dashboard [get]
func (h *AnalyticsHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	dash, err := h.aggregator.AdminDashboard(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "build admin dashboard")
		return
	}

	writeJSON(w, dash, http.StatusOK)
}
