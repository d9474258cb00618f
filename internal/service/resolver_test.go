package service

import (
	"ShrtLink-Backend/internal/analytics"
	"ShrtLink-Backend/internal/cache"
	"ShrtLink-Backend/internal/domain"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveAppendsUTM(t *testing.T) {
	e := newEnv(t)
	link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com", UTMSource: strPtr("news")})

	dest, err := e.resolver.Resolve(context.Background(), visit(link.ShortCode))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com?utm_source=news", dest)
}

func TestWithUTM(t *testing.T) {
	tests := []struct {
		name string
		link domain.Link
		want string
	}{
		{name: "none", link: domain.Link{OriginalURL: "https://example.com/a"}, want: "https://example.com/a"},
		{name: "empty values", link: domain.Link{OriginalURL: "https://example.com", UTMSource: strPtr("")}, want: "https://example.com"},
		{
			name: "all three in order",
			link: domain.Link{OriginalURL: "https://example.com", UTMSource: strPtr("a"), UTMMedium: strPtr("b"), UTMCampaign: strPtr("c")},
			want: "https://example.com?utm_source=a&utm_medium=b&utm_campaign=c",
		},
		{
			name: "existing query",
			link: domain.Link{OriginalURL: "https://example.com/?q=1", UTMCampaign: strPtr("spring sale")},
			want: "https://example.com/?q=1&utm_campaign=spring+sale",
		},
		{
			name: "encoded",
			link: domain.Link{OriginalURL: "https://example.com", UTMMedium: strPtr("a&b=c")},
			want: "https://example.com?utm_medium=a%26b%3Dc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithUTM(&tt.link))
		})
	}
}

func TestResolveOutcomes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	t.Run("not found", func(t *testing.T) {
		_, err := e.resolver.Resolve(ctx, visit("nope00"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("expired right after creation", func(t *testing.T) {
		link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com", ExpiresAt: &past})
		_, err := e.resolver.Resolve(ctx, visit(link.ShortCode))
		assert.ErrorIs(t, err, domain.ErrExpired)
	})

	t.Run("expired wins over inactive and limit", func(t *testing.T) {
		link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com", ExpiresAt: &past, ClickLimit: 1})
		link.IsActive = false
		require.NoError(t, e.store.UpdateLink(ctx, link))
		_, err := e.resolver.Resolve(ctx, visit(link.ShortCode))
		assert.ErrorIs(t, err, domain.ErrExpired)
	})

	t.Run("deactivated is gone", func(t *testing.T) {
		link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com"})
		link.IsActive = false
		require.NoError(t, e.store.UpdateLink(ctx, link))
		_, err := e.resolver.Resolve(ctx, visit(link.ShortCode))
		assert.ErrorIs(t, err, domain.ErrGone)
		assert.Equal(t, "deactivated", domain.GoneReason(err))
	})

	t.Run("password required hides destination", func(t *testing.T) {
		link := e.create(t, CreateLinkInput{OriginalURL: "https://secret.example", Password: "hunter22"})
		dest, err := e.resolver.Resolve(ctx, visit(link.ShortCode))
		assert.ErrorIs(t, err, domain.ErrPasswordRequired)
		assert.Empty(t, dest)
	})

	t.Run("deleted link is not found", func(t *testing.T) {
		link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com"})
		require.NoError(t, e.store.SoftDeleteLink(ctx, link.ID))
		_, err := e.resolver.Resolve(ctx, visit(link.ShortCode))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestResolveClickLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com", ClickLimit: 1})

	dest, err := e.resolver.Resolve(ctx, visit(link.ShortCode))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", dest)

	_, err = e.resolver.Resolve(ctx, visit(link.ShortCode))
	assert.ErrorIs(t, err, domain.ErrGone)
	assert.Equal(t, "limit reached", domain.GoneReason(err))
	assert.Equal(t, 1, e.dispatcher.count())
}

func TestResolveByAlias(t *testing.T) {
	e := newEnv(t)
	link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com/promo", CustomAlias: "promo"})
	assert.Equal(t, "promo", link.ShortCode)

	dest, err := e.resolver.Resolve(context.Background(), visit("promo"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/promo", dest)
}

func TestResolveWithPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	link := e.create(t, CreateLinkInput{OriginalURL: "https://secret.example", Password: "hunter22", UTMSource: strPtr("mail")})

	dest, err := e.resolver.ResolveWithPassword(ctx, "hunter22", visit(link.ShortCode))
	require.NoError(t, err)
	assert.Equal(t, "https://secret.example?utm_source=mail", dest)
	assert.Equal(t, 1, e.dispatcher.count())

	_, err = e.resolver.ResolveWithPassword(ctx, "wrong-pass", visit(link.ShortCode))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 1, e.dispatcher.count())

	_, err = e.resolver.ResolveWithPassword(ctx, "hunter22", visit("missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, hit, err := e.cache.Get(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestResolveWithPasswordChecksGatesAfterVerify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Minute)
	link := e.create(t, CreateLinkInput{OriginalURL: "https://secret.example", Password: "hunter22", ExpiresAt: &past})

	_, err := e.resolver.ResolveWithPassword(ctx, "wrong-pass", visit(link.ShortCode))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = e.resolver.ResolveWithPassword(ctx, "hunter22", visit(link.ShortCode))
	assert.ErrorIs(t, err, domain.ErrExpired)
}

func TestResolveWithPasswordOnOpenLink(t *testing.T) {
	e := newEnv(t)
	link := e.create(t, CreateLinkInput{OriginalURL: "https://open.example"})

	dest, err := e.resolver.ResolveWithPassword(context.Background(), "anything", visit(link.ShortCode))
	require.NoError(t, err)
	assert.Equal(t, "https://open.example", dest)
}

func TestResolveCacheIsOnlyAHint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com"})

	_, err := e.resolver.Resolve(ctx, visit(link.ShortCode))
	require.NoError(t, err)
	hint, hit, err := e.cache.Get(ctx, link.ShortCode)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "https://example.com", hint.Destination)

	// deactivated behind the cache's back: the store still decides
	link.IsActive = false
	require.NoError(t, e.store.UpdateLink(ctx, link))
	_, err = e.resolver.Resolve(ctx, visit(link.ShortCode))
	assert.ErrorIs(t, err, domain.ErrDeactivated)

	// a stale destination is replaced with the stored one
	other := e.create(t, CreateLinkInput{OriginalURL: "https://fresh.example"})
	require.NoError(t, e.cache.Set(ctx, other.ShortCode, cache.Resolution{Destination: "https://stale.example"}, time.Minute))
	dest, err := e.resolver.Resolve(ctx, visit(other.ShortCode))
	require.NoError(t, err)
	assert.Equal(t, "https://fresh.example", dest)
	hint, _, err = e.cache.Get(ctx, other.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://fresh.example", hint.Destination)

	// a hint for a vanished link is evicted
	require.NoError(t, e.store.SoftDeleteLink(ctx, other.ID))
	_, err = e.resolver.Resolve(ctx, visit(other.ShortCode))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, hit, err = e.cache.Get(ctx, other.ShortCode)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestResolveSurvivesBrokenCache(t *testing.T) {
	e := newEnv(t)
	link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com"})
	r := NewResolver(e.store, brokenCache{}, e.hasher, e.dispatcher, ResolverConfig{}, zap.NewNop())

	dest, err := r.Resolve(context.Background(), visit(link.ShortCode))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", dest)
}

// failingDispatcher refuses every click.
type failingDispatcher struct{}

func (failingDispatcher) SubmitClick(*analytics.ClickData) error { return analytics.ErrQueueFull }

func TestResolveIgnoresDispatchFailure(t *testing.T) {
	e := newEnv(t)
	link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com"})
	r := NewResolver(e.store, e.cache, e.hasher, failingDispatcher{}, ResolverConfig{}, zap.NewNop())

	dest, err := r.Resolve(context.Background(), visit(link.ShortCode))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", dest)
}

func TestConcurrentResolvesCountEveryClick(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	link := e.create(t, CreateLinkInput{OriginalURL: "https://example.com"})

	recorder, err := analytics.NewRecorder(e.store, nil, nil, 2, zap.NewNop())
	require.NoError(t, err)
	cfg := analytics.DefaultConfig()
	cfg.WorkerCount = 8
	cfg.RetryDelay = time.Millisecond
	proc := analytics.NewProcessor(recorder, zap.NewNop(), cfg)
	require.NoError(t, proc.Start())

	r := NewResolver(e.store, e.cache, e.hasher, proc, ResolverConfig{}, zap.NewNop())

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := visit(link.ShortCode)
			v.IP = fmt.Sprintf("10.1.%d.%d", i%5, i%7)
			_, err := r.Resolve(ctx, v)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	require.NoError(t, proc.Stop())

	got, err := e.store.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.TotalClicks)
	assert.LessOrEqual(t, got.UniqueClicks, got.TotalClicks)
	assert.GreaterOrEqual(t, got.UniqueClicks, int64(1))
}
