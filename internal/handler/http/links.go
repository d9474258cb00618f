package http

import (
	"ShrtLink-Backend/internal/auth"
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/service"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LinksHandler обработчик для работы со ссылками
type LinksHandler struct {
	urlShortener *service.URLShortenerService
	log          *zap.Logger
}

// NewLinksHandler создает новый обработчик ссылок
func NewLinksHandler(urlShortener *service.URLShortenerService, log *zap.Logger) *LinksHandler {
	return &LinksHandler{
		urlShortener: urlShortener,
		log:          log,
	}
}

// CreateLinkRequest структура запроса создания ссылки
type CreateLinkRequest struct {
	OriginalURL string   `json:"original_url"`
	CustomAlias string   `json:"custom_alias,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	ExpiresAt   string   `json:"expires_at,omitempty"` // RFC3339
	Password    string   `json:"password,omitempty"`
	ClickLimit  int      `json:"click_limit,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	UTMSource   *string  `json:"utm_source,omitempty"`
	UTMMedium   *string  `json:"utm_medium,omitempty"`
	UTMCampaign *string  `json:"utm_campaign,omitempty"`
}

// BulkCreateRequest пакет ссылок одного владельца
type BulkCreateRequest struct {
	URLs []CreateLinkRequest `json:"urls"`
}

// BulkFailureResponse ошибка одного элемента пакета
type BulkFailureResponse struct {
	Index       int    `json:"index"`
	OriginalURL string `json:"original_url"`
	Error       string `json:"error"`
}

// BulkCreateResponse итог пакетного создания
type BulkCreateResponse struct {
	Message  string                `json:"message"`
	Created  []LinkResponse        `json:"created"`
	Failures []BulkFailureResponse `json:"failures,omitempty"`
}

func (req CreateLinkRequest) toInput() (service.CreateLinkInput, error) {
	in := service.CreateLinkInput{
		OriginalURL: strings.TrimSpace(req.OriginalURL),
		CustomAlias: strings.TrimSpace(req.CustomAlias),
		Title:       req.Title,
		Description: req.Description,
		Password:    req.Password,
		ClickLimit:  req.ClickLimit,
		Tags:        req.Tags,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
	}

	if req.ExpiresAt != "" {
		expiresAt, err := parseTime(req.ExpiresAt)
		if err != nil {
			return in, err
		}
		in.ExpiresAt = &expiresAt
	}
	return in, nil
}

// UpdateLinkRequest структура запроса изменения ссылки; отсутствующее поле не меняется
type UpdateLinkRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	ExpiresAt   *string  `json:"expires_at,omitempty"`
	ClearExpiry bool     `json:"clear_expiry,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	UTMSource   *string  `json:"utm_source,omitempty"`
	UTMMedium   *string  `json:"utm_medium,omitempty"`
	UTMCampaign *string  `json:"utm_campaign,omitempty"`
}

// LinkResponse структура ответа со ссылкой
type LinkResponse struct {
	ID                  int64      `json:"id"`
	ShortCode           string     `json:"short_code"`
	ShortURL            string     `json:"short_url"`
	OriginalURL         string     `json:"original_url"`
	Title               *string    `json:"title,omitempty"`
	Description         *string    `json:"description,omitempty"`
	IsActive            bool       `json:"is_active"`
	IsPasswordProtected bool       `json:"is_password_protected"`
	ClickLimit          int        `json:"click_limit"`
	Tags                []string   `json:"tags,omitempty"`
	TotalClicks         int64      `json:"total_clicks"`
	UniqueClicks        int64      `json:"unique_clicks"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// CreateLink создает новую короткую ссылку
//
//	@Summary		Create a short link
//	@Description	Create a new shortened URL. Anonymous requests are allowed; authenticated ones count against the plan quota.
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateLinkRequest	true	"Link parameters"
//	@Success		201		{object}	LinkResponse
//	@Failure		400		{object}	map[string]string	"Invalid input"
//	@Failure		409		{object}	map[string]string	"Alias already exists"
//	@Failure		429		{object}	map[string]string	"Link quota exceeded"
//	@Security		BearerAuth
//	@Router			/api/shorten [post]
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Анонимная ссылка, если пользователь не авторизован
	var ownerID *int64
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		ownerID = &userID
	}

	link, err := h.urlShortener.Create(r.Context(), ownerID, in)
	if err != nil {
		writeServiceError(w, h.log, err, "create link")
		return
	}

	h.log.Info("link created",
		zap.Int64("link_id", link.ID),
		zap.String("short_code", link.ShortCode),
		zap.Bool("anonymous", ownerID == nil))

	writeJSON(w, h.toResponse(link), http.StatusCreated)
}

// BulkCreate создает пакет ссылок
//
//	@Summary		Shorten many URLs
//	@Description	Create up to 100 links in one request. The whole batch must fit into the remaining plan quota; failed items are reported next to the created ones.
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Param			request	body		BulkCreateRequest	true	"Links to create"
//	@Success		201		{object}	BulkCreateResponse
//	@Failure		400		{object}	BulkCreateResponse	"Invalid input or every item failed"
//	@Failure		401		{object}	map[string]string	"Unauthorized"
//	@Failure		429		{object}	map[string]string	"Link quota exceeded"
//	@Security		BearerAuth
//	@Router			/api/shorten/bulk [post]
func (h *LinksHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req BulkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	inputs := make([]service.CreateLinkInput, 0, len(req.URLs))
	for i, item := range req.URLs {
		in, err := item.toInput()
		if err != nil {
			writeError(w, fmt.Sprintf("urls[%d]: %s", i, err), http.StatusBadRequest)
			return
		}
		inputs = append(inputs, in)
	}

	result, err := h.urlShortener.BulkCreate(r.Context(), userID, inputs)
	if err != nil {
		// Все элементы отклонены: отдаем причины по каждому
		if result != nil {
			writeJSON(w, h.toBulkResponse(result, err.Error()), http.StatusBadRequest)
			return
		}
		writeServiceError(w, h.log, err, "create links")
		return
	}

	message := fmt.Sprintf("%d links created", len(result.Created))
	if len(result.Failures) > 0 {
		message = fmt.Sprintf("%d links created, %d failed", len(result.Created), len(result.Failures))
	}
	writeJSON(w, h.toBulkResponse(result, message), http.StatusCreated)
}

// UpdateLink изменяет метаданные ссылки
//
//	@Summary		Update a link
//	@Description	Change metadata of an owned link. The short code never changes.
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Link ID"
//	@Param			request	body		UpdateLinkRequest	true	"Fields to change"
//	@Success		200		{object}	LinkResponse
//	@Failure		400		{object}	map[string]string	"Invalid input"
//	@Failure		401		{object}	map[string]string	"Unauthorized"
//	@Failure		403		{object}	map[string]string	"Access denied"
//	@Failure		404		{object}	map[string]string	"Link not found"
//	@Security		BearerAuth
//	@Router			/api/links/{id} [patch]
func (h *LinksHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
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

	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	in := service.UpdateLinkInput{
		Title:       req.Title,
		Description: req.Description,
		ClearExpiry: req.ClearExpiry,
		IsActive:    req.IsActive,
		Tags:        req.Tags,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
	}
	if req.ExpiresAt != nil && !req.ClearExpiry {
		expiresAt, err := parseTime(*req.ExpiresAt)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		in.ExpiresAt = &expiresAt
	}

	link, err := h.urlShortener.Update(r.Context(), linkID, userID, in)
	if err != nil {
		writeServiceError(w, h.log, err, "update link")
		return
	}

	writeJSON(w, h.toResponse(link), http.StatusOK)
}

// DeleteLink удаляет ссылку
//
//	@Summary		Delete a link
//	@Description	Soft delete an owned link. The code stays reserved.
//	@Tags			Links
//	@Param			id	path	int	true	"Link ID"
//	@Success		204	"Deleted"
//	@Failure		401	{object}	map[string]string	"Unauthorized"
//	@Failure		403	{object}	map[string]string	"Access denied"
//	@Failure		404	{object}	map[string]string	"Link not found"
//	@Security		BearerAuth
//	@Router			/api/links/{id} [delete]
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
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

	if err := h.urlShortener.Delete(r.Context(), linkID, userID); err != nil {
		writeServiceError(w, h.log, err, "delete link")
		return
	}

	h.log.Info("link deleted", zap.Int64("link_id", linkID), zap.Int64("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *LinksHandler) toBulkResponse(result *service.BulkResult, message string) BulkCreateResponse {
	resp := BulkCreateResponse{
		Message: message,
		Created: make([]LinkResponse, 0, len(result.Created)),
	}
	for _, link := range result.Created {
		resp.Created = append(resp.Created, h.toResponse(link))
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, BulkFailureResponse{
			Index:       f.Index,
			OriginalURL: f.OriginalURL,
			Error:       failureReason(f.Err),
		})
	}
	return resp
}

// failureReason текст ошибки элемента без внутренних деталей хранилища
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, domain.ErrConflict):
		return "Alias already exists"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "Link quota exceeded"
	default:
		return "Internal server error"
	}
}

func (h *LinksHandler) toResponse(link *domain.Link) LinkResponse {
	return LinkResponse{
		ID:                  link.ID,
		ShortCode:           link.ShortCode,
		ShortURL:            h.urlShortener.ShortURL(link),
		OriginalURL:         link.OriginalURL,
		Title:               link.Title,
		Description:         link.Description,
		IsActive:            link.IsActive,
		IsPasswordProtected: link.IsPasswordProtected(),
		ClickLimit:          link.ClickLimit,
		Tags:                link.Tags,
		TotalClicks:         link.TotalClicks,
		UniqueClicks:        link.UniqueClicks,
		ExpiresAt:           link.ExpiresAt,
		CreatedAt:           link.CreatedAt,
	}
}

// pathID читает числовой {id} из пути
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid link id %q", r.PathValue("id"))
	}
	return id, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expires_at format, use RFC3339")
	}
	return t.UTC(), nil
}
