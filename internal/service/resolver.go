package service

import (
	"ShrtLink-Backend/internal/analytics"
	"ShrtLink-Backend/internal/cache"
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClickDispatcher takes a click off the request path. It must not block.
type ClickDispatcher interface {
	SubmitClick(data *analytics.ClickData) error
}

// LinkLookup finds a live link by short code or alias.
type LinkLookup interface {
	GetLinkByCode(ctx context.Context, code string) (*domain.Link, error)
}

// ResolverConfig bounds a single resolution.
type ResolverConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Visit describes the client following a short link.
type Visit struct {
	Code      string
	IP        string
	UserAgent string
	Referer   string
}

// Resolver decides redirects. The cache only saves work: every decision is
// taken from the stored link, never from cached fields.
type Resolver struct {
	links      LinkLookup
	cache      cache.ResolutionCache
	hasher     CredentialHasher
	dispatcher ClickDispatcher
	config     ResolverConfig
	log        *zap.Logger
	now        func() time.Time
}

func NewResolver(links LinkLookup, resolutionCache cache.ResolutionCache, hasher CredentialHasher, dispatcher ClickDispatcher, cfg ResolverConfig, log *zap.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	return &Resolver{
		links:      links,
		cache:      resolutionCache,
		hasher:     hasher,
		dispatcher: dispatcher,
		config:     cfg,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Resolve returns the destination for v.Code, with UTM parameters appended.
// Outcomes: domain.ErrNotFound, domain.ErrExpired, domain.ErrGone (deactivated
// or limit reached), domain.ErrPasswordRequired.
func (r *Resolver) Resolve(ctx context.Context, v Visit) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	hint := r.cached(ctx, v.Code)

	link, err := r.lookup(ctx, v.Code, hint != nil)
	if err != nil {
		return "", err
	}

	if err := r.checkGates(link); err != nil {
		return "", err
	}
	if link.IsPasswordProtected() {
		return "", domain.ErrPasswordRequired
	}

	r.remember(ctx, v.Code, hint, cache.Resolution{Destination: link.OriginalURL})
	r.dispatch(link, v)
	return WithUTM(link), nil
}

// ResolveWithPassword unlocks a password protected link. A wrong password
// yields domain.ErrUnauthorized before any other check runs.
func (r *Resolver) ResolveWithPassword(ctx context.Context, password string, v Visit) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	link, err := r.lookup(ctx, v.Code, false)
	if err != nil {
		return "", err
	}

	if !link.IsPasswordProtected() {
		if err := r.checkGates(link); err != nil {
			return "", err
		}
		r.remember(ctx, v.Code, nil, cache.Resolution{Destination: link.OriginalURL})
		r.dispatch(link, v)
		return WithUTM(link), nil
	}

	if !r.hasher.Verify(password, *link.PasswordHash) {
		r.log.Debug("wrong link password", zap.String("code", v.Code))
		return "", domain.ErrUnauthorized
	}

	if err := r.checkGates(link); err != nil {
		return "", err
	}

	r.dispatch(link, v)
	return WithUTM(link), nil
}

func (r *Resolver) lookup(ctx context.Context, code string, hinted bool) (*domain.Link, error) {
	link, err := r.links.GetLinkByCode(ctx, code)
	if err == nil {
		return link, nil
	}
	if errors.Is(err, repository.ErrLinkNotFound) {
		if hinted {
			if err := r.cache.Delete(ctx, code); err != nil {
				r.log.Warn("failed to evict stale resolution", zap.String("code", code), zap.Error(err))
			}
		}
		return nil, domain.ErrNotFound
	}
	return nil, fmt.Errorf("failed to load link %q: %w", code, err)
}

// checkGates runs expiry before the active flag so an expired link always reads as expired.
func (r *Resolver) checkGates(link *domain.Link) error {
	switch {
	case link.IsExpired(r.now()):
		return domain.ErrExpired
	case !link.IsActive:
		return domain.ErrDeactivated
	case link.LimitReached():
		return domain.ErrLimitReached
	}
	return nil
}

func (r *Resolver) cached(ctx context.Context, code string) *cache.Resolution {
	hint, ok, err := r.cache.Get(ctx, code)
	if err != nil {
		r.log.Warn("resolution cache unavailable, using store", zap.String("code", code), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return hint
}

func (r *Resolver) remember(ctx context.Context, code string, hint *cache.Resolution, want cache.Resolution) {
	if hint != nil && *hint == want {
		return
	}
	if err := r.cache.Set(ctx, code, want, r.config.CacheTTL); err != nil {
		r.log.Warn("failed to cache resolution", zap.String("code", code), zap.Error(err))
	}
}

func (r *Resolver) dispatch(link *domain.Link, v Visit) {
	if r.dispatcher == nil {
		return
	}
	data := &analytics.ClickData{
		LinkID:    link.ID,
		ShortCode: link.ShortCode,
		IPAddress: v.IP,
		UserAgent: v.UserAgent,
		Referer:   v.Referer,
		ClickedAt: r.now(),
	}
	if err := r.dispatcher.SubmitClick(data); err != nil {
		r.log.Warn("click not recorded", zap.Int64("link_id", link.ID), zap.Error(err))
	}
}

// WithUTM appends the link's UTM parameters in source, medium, campaign order.
func WithUTM(link *domain.Link) string {
	var params []string
	for _, p := range []struct {
		key   string
		value *string
	}{
		{"utm_source", link.UTMSource},
		{"utm_medium", link.UTMMedium},
		{"utm_campaign", link.UTMCampaign},
	} {
		if p.value != nil && *p.value != "" {
			params = append(params, p.key+"="+url.QueryEscape(*p.value))
		}
	}

	if len(params) == 0 {
		return link.OriginalURL
	}

	sep := "?"
	if strings.Contains(link.OriginalURL, "?") {
		sep = "&"
	}
	return link.OriginalURL + sep + strings.Join(params, "&")
}
