package service

import (
	"ShrtLink-Backend/internal/analytics"
	"ShrtLink-Backend/internal/auth"
	"ShrtLink-Backend/internal/cache"
	"ShrtLink-Backend/internal/config"
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/repository/memory"
	"ShrtLink-Backend/pkg/useragent"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func testShortenerConfig() *config.URLShortener {
	return &config.URLShortener{
		BaseURL:       "https://sh.rt/",
		CodeLength:    6,
		MaxCodeLength: 12,
		MaxAttempts:   10,
	}
}

// syncDispatcher records clicks inline, the way a processor worker does.
type syncDispatcher struct {
	recorder *analytics.Recorder
	mu       sync.Mutex
	clicks   []*analytics.ClickData
}

func (d *syncDispatcher) SubmitClick(data *analytics.ClickData) error {
	d.mu.Lock()
	d.clicks = append(d.clicks, data)
	d.mu.Unlock()

	_, err := d.recorder.Record(context.Background(), data)
	return err
}

func (d *syncDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.clicks)
}

// brokenCache fails every call.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*cache.Resolution, bool, error) {
	return nil, false, errors.New("cache down")
}
func (brokenCache) Set(context.Context, string, cache.Resolution, time.Duration) error {
	return errors.New("cache down")
}
func (brokenCache) Delete(context.Context, ...string) error { return errors.New("cache down") }
func (brokenCache) Stats() cache.Stats                      { return cache.Stats{} }

type env struct {
	store      *memory.MemStorage
	cache      *cache.MemoryCache
	hasher     *auth.PasswordService
	dispatcher *syncDispatcher
	shortener  *URLShortenerService
	resolver   *Resolver
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	rc := cache.NewMemoryCache(time.Minute, time.Minute)
	hasher := auth.NewPasswordServiceWithCost(4)

	recorder, err := analytics.NewRecorder(store, useragent.NewParser(zap.NewNop()), nil, 1, zap.NewNop())
	require.NoError(t, err)
	dispatcher := &syncDispatcher{recorder: recorder}

	return &env{
		store:      store,
		cache:      rc,
		hasher:     hasher,
		dispatcher: dispatcher,
		shortener:  NewURLShortener(store, rc, hasher, testShortenerConfig(), zap.NewNop()),
		resolver:   NewResolver(store, rc, hasher, dispatcher, ResolverConfig{Timeout: time.Second, CacheTTL: time.Minute}, zap.NewNop()),
	}
}

func (e *env) create(t *testing.T, in CreateLinkInput) *domain.Link {
	t.Helper()
	link, err := e.shortener.Create(context.Background(), nil, in)
	require.NoError(t, err)
	return link
}

func visit(code string) Visit {
	return Visit{Code: code, IP: "198.51.100.7", UserAgent: "Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0"}
}
