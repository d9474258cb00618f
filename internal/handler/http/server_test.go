package http

import (
	"ShrtLink-Backend/internal/analytics"
	"ShrtLink-Backend/internal/auth"
	"ShrtLink-Backend/internal/cache"
	"ShrtLink-Backend/internal/config"
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/repository/memory"
	"ShrtLink-Backend/internal/service"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// inlineDispatcher records clicks before the response is written.
type inlineDispatcher struct {
	recorder *analytics.Recorder
}

func (d *inlineDispatcher) SubmitClick(data *analytics.ClickData) error {
	_, err := d.recorder.Record(context.Background(), data)
	return err
}

type testServer struct {
	store   *memory.MemStorage
	jwt     *auth.JWTService
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := memory.New()
	rc := cache.NewMemoryCache(time.Minute, time.Minute)
	hasher := auth.NewPasswordServiceWithCost(4)
	jwt := auth.NewJWTService(&auth.JWTConfig{SecretKey: []byte("test-secret"), AccessTokenDuration: time.Hour, Issuer: "test"})

	recorder, err := analytics.NewRecorder(store, nil, nil, 1, log)
	require.NoError(t, err)

	shortenerCfg := &config.URLShortener{
		BaseURL:          "https://sh.rt",
		CodeLength:       6,
		MaxCodeLength:    12,
		MaxAttempts:      10,
		PasswordPagePath: "/password-required",
		ExpiredPagePath:  "/link-expired",
	}

	server := NewServer(Dependencies{
		Resolver:       service.NewResolver(store, rc, hasher, &inlineDispatcher{recorder: recorder}, service.ResolverConfig{Timeout: time.Second, CacheTTL: time.Minute}, log),
		Shortener:      service.NewURLShortener(store, rc, hasher, shortenerCfg, log),
		Aggregator:     analytics.NewAggregator(store, analytics.AggregatorConfig{DefaultDays: 30, MaxDays: 365}, log),
		Storage:        store,
		Cache:          rc,
		AuthMiddleware: auth.NewMiddleware(jwt, []string{"https://app.sh.rt"}, log),
		URLShortener:   shortenerCfg,
	}, log)

	return &testServer{store: store, jwt: jwt, handler: server.SetupRoutes()}
}

func (s *testServer) user(t *testing.T, role string) (*domain.User, string) {
	t.Helper()
	u := &domain.User{Email: fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()), Role: role, SubscriptionTypeID: 1, IsActive: true}
	s.store.AddUser(u)
	token, err := s.jwt.GenerateAccessToken(u.ID, u.Email)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) shorten(t *testing.T, body, token string) LinkResponse {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/shorten", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp LinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestShortenAndRedirect(t *testing.T) {
	s := newTestServer(t)

	link := s.shorten(t, `{"original_url":"https://example.com/page","utm_source":"news"}`, "")
	assert.Len(t, link.ShortCode, 6)
	assert.Equal(t, "https://sh.rt/"+link.ShortCode, link.ShortURL)
	assert.False(t, link.IsPasswordProtected)

	rec := s.do(http.MethodGet, "/"+link.ShortCode, "", "", "User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/page?utm_source=news", rec.Header().Get("Location"))
	assert.Equal(t, "private, max-age=0", rec.Header().Get("Cache-Control"))

	stored, err := s.store.GetLinkByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.TotalClicks)
	assert.Equal(t, int64(1), stored.UniqueClicks)
}

func TestRedirectOutcomes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("unknown code", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/nope00", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("password protected", func(t *testing.T) {
		link := s.shorten(t, `{"original_url":"https://secret.example","password":"hunter22"}`, "")
		assert.True(t, link.IsPasswordProtected)

		rec := s.do(http.MethodGet, "/"+link.ShortCode, "", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/password-required/"+link.ShortCode, rec.Header().Get("Location"))
	})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
		link := s.shorten(t, `{"original_url":"https://example.com","expires_at":"`+past+`"}`, "")

		rec := s.do(http.MethodGet, "/"+link.ShortCode, "", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/link-expired", rec.Header().Get("Location"))
	})

	t.Run("deactivated", func(t *testing.T) {
		link := s.shorten(t, `{"original_url":"https://example.com"}`, "")
		stored, err := s.store.GetLinkByID(ctx, link.ID)
		require.NoError(t, err)
		stored.IsActive = false
		require.NoError(t, s.store.UpdateLink(ctx, stored))

		rec := s.do(http.MethodGet, "/"+link.ShortCode, "", "")
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, "deactivated", decode(t, rec)["reason"])
	})

	t.Run("click limit", func(t *testing.T) {
		link := s.shorten(t, `{"original_url":"https://example.com","click_limit":1}`, "")

		assert.Equal(t, http.StatusFound, s.do(http.MethodGet, "/"+link.ShortCode, "", "").Code)
		rec := s.do(http.MethodGet, "/"+link.ShortCode, "", "")
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, "limit reached", decode(t, rec)["reason"])
	})
}

func TestUnlock(t *testing.T) {
	s := newTestServer(t)
	link := s.shorten(t, `{"original_url":"https://secret.example","password":"hunter22"}`, "")
	path := "/" + link.ShortCode + "/unlock"

	rec := s.do(http.MethodPost, path, `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, path, `{"password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, path, `{"password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://secret.example", decode(t, rec)["url"])

	rec = s.do(http.MethodPost, "/missing/unlock", `{"password":"hunter22"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShortenErrors(t *testing.T) {
	s := newTestServer(t)
	s.shorten(t, `{"original_url":"https://example.com","custom_alias":"promo"}`, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
		{name: "bad url", body: `{"original_url":"not a url"}`, want: http.StatusBadRequest},
		{name: "bad expiry", body: `{"original_url":"https://example.com","expires_at":"tomorrow"}`, want: http.StatusBadRequest},
		{name: "reserved alias", body: `{"original_url":"https://example.com","custom_alias":"health"}`, want: http.StatusBadRequest},
		{name: "alias taken", body: `{"original_url":"https://example.com","custom_alias":"promo"}`, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/shorten", tt.body, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestShortenQuota(t *testing.T) {
	s := newTestServer(t)
	one := 1
	s.store.AddPlan(domain.SubscriptionType{ID: 1, Name: "free", MaxLinks: &one})
	_, token := s.user(t, domain.RoleUser)

	link := s.shorten(t, `{"original_url":"https://example.com"}`, token)
	stored, err := s.store.GetLinkByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.UserID)

	rec := s.do(http.MethodPost, "/api/shorten", `{"original_url":"https://example.com"}`, token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// an invalid token falls back to an anonymous link
	s.shorten(t, `{"original_url":"https://example.com"}`, "garbage")
}

func TestBulkShorten(t *testing.T) {
	s := newTestServer(t)
	three := 3
	s.store.AddPlan(domain.SubscriptionType{ID: 1, Name: "free", MaxLinks: &three})
	_, token := s.user(t, domain.RoleUser)
	s.shorten(t, `{"original_url":"https://example.com","custom_alias":"promo"}`, "")

	rec := s.do(http.MethodPost, "/api/shorten/bulk", `{"urls":[{"original_url":"https://example.com"}]}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/shorten/bulk", `{"urls":[
		{"original_url":"https://one.example"},
		{"original_url":"https://two.example","custom_alias":"promo"},
		{"original_url":"https://three.example","tags":["a"]}
	]}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp BulkCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2 links created, 1 failed", resp.Message)
	require.Len(t, resp.Created, 2)
	assert.Equal(t, "https://one.example", resp.Created[0].OriginalURL)
	assert.Equal(t, []string{"a"}, resp.Created[1].Tags)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, BulkFailureResponse{Index: 1, OriginalURL: "https://two.example", Error: "Alias already exists"}, resp.Failures[0])

	// one slot left
	rec = s.do(http.MethodPost, "/api/shorten/bulk", `{"urls":[{"original_url":"https://a.example"},{"original_url":"https://b.example"}]}`, token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())
}

func TestBulkShortenErrors(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(t, domain.RoleUser)

	items := make([]string, service.MaxBulkLinks+1)
	for i := range items {
		items[i] = `{"original_url":"https://example.com"}`
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
		{name: "empty batch", body: `{"urls":[]}`, want: http.StatusBadRequest},
		{name: "too many", body: `{"urls":[` + strings.Join(items, ",") + `]}`, want: http.StatusBadRequest},
		{name: "bad expiry", body: `{"urls":[{"original_url":"https://example.com","expires_at":"tomorrow"}]}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/shorten/bulk", tt.body, token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := s.do(http.MethodPost, "/api/shorten/bulk", `{"urls":[{"original_url":"nope"},{"original_url":"ftp://x.example"}]}`, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp BulkCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Created)
	require.Len(t, resp.Failures, 2)
	assert.Equal(t, 1, resp.Failures[1].Index)
	assert.Contains(t, resp.Failures[1].Error, "original_url")
}

func TestUpdateAndDeleteLink(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.user(t, domain.RoleUser)
	_, otherToken := s.user(t, domain.RoleUser)
	link := s.shorten(t, `{"original_url":"https://example.com"}`, ownerToken)
	path := fmt.Sprintf("/api/links/%d", link.ID)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPatch, path, `{"title":"x"}`, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPatch, path, `{"title":"x"}`, otherToken).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/api/links/abc", `{"title":"x"}`, ownerToken).Code)

	rec := s.do(http.MethodPatch, path, `{"title":"Campaign","is_active":false}`, ownerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated LinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.NotNil(t, updated.Title)
	assert.Equal(t, "Campaign", *updated.Title)
	assert.False(t, updated.IsActive)
	assert.Equal(t, link.ShortCode, updated.ShortCode)

	assert.Equal(t, http.StatusGone, s.do(http.MethodGet, "/"+link.ShortCode, "", "").Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, path, "", otherToken).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, path, "", ownerToken).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, path, "", ownerToken).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/"+link.ShortCode, "", "").Code)
}

func TestLinkAnalytics(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.user(t, domain.RoleUser)
	_, otherToken := s.user(t, domain.RoleUser)
	_, adminToken := s.user(t, domain.RoleAdmin)
	link := s.shorten(t, `{"original_url":"https://example.com"}`, ownerToken)

	for _, ip := range []string{"203.0.113.1", "203.0.113.1", "203.0.113.2"} {
		rec := s.do(http.MethodGet, "/"+link.ShortCode, "", "", "X-Forwarded-For", ip, "Referer", "https://news.example/")
		require.Equal(t, http.StatusFound, rec.Code)
	}

	path := fmt.Sprintf("/api/analytics/links/%d?days=7", link.ID)
	rec := s.do(http.MethodGet, path, "", ownerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report analytics.LinkReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 7, report.Days)
	assert.Equal(t, int64(3), report.TotalClicks)
	assert.Equal(t, int64(2), report.UniqueClicks)
	assert.Len(t, report.Daily, 7)
	require.Len(t, report.Referrers, 1)
	assert.Equal(t, float64(100), report.Referrers[0].Percentage)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, "", adminToken).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, path, "", otherToken).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, path, "", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, fmt.Sprintf("/api/analytics/links/%d?days=week", link.ID), "", ownerToken).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/analytics/links/9999", "", ownerToken).Code)
}

func TestDashboards(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.user(t, domain.RoleUser)
	_, adminToken := s.user(t, domain.RoleSuperAdmin)
	s.shorten(t, `{"original_url":"https://example.com"}`, userToken)

	rec := s.do(http.MethodGet, "/api/analytics/dashboard", "", userToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash analytics.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, int64(1), dash.TotalLinks)
	assert.Len(t, dash.TopLinks, 1)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/analytics/admin/dashboard", "", userToken).Code)

	rec = s.do(http.MethodGet, "/api/analytics/admin/dashboard", "", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var admin analytics.AdminDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admin))
	assert.Equal(t, int64(2), admin.TotalUsers)
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["database_status"])

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ready", "", "").Code)

	rec = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "resolution_cache")
}

type stoppedProcessor struct{}

func (stoppedProcessor) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": false}
}

func TestReadyWithoutProcessor(t *testing.T) {
	h := NewHealthHandler(memory.New(), stoppedProcessor{}, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSAndRequestID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodOptions, "/api/shorten", "", "", "Origin", "https://app.sh.rt")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.sh.rt", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = s.do(http.MethodGet, "/health", "", "", RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestExtractIPAddress(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded list", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, remote: "10.0.0.2:1234", want: "203.0.113.5"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.9"}, remote: "10.0.0.2:1234", want: "198.51.100.9"},
		{name: "remote addr", remote: "192.0.2.4:5555", want: "192.0.2.4"},
		{name: "remote without port", remote: "192.0.2.4", want: "192.0.2.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractIPAddress(req))
		})
	}
}
