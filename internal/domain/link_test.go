package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestLinkPredicates(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("expiry", func(t *testing.T) {
		assert.False(t, (&Link{}).IsExpired(now))
		assert.True(t, (&Link{ExpiresAt: ptr(now.Add(-time.Second))}).IsExpired(now))
		assert.False(t, (&Link{ExpiresAt: ptr(now)}).IsExpired(now))
		assert.False(t, (&Link{ExpiresAt: ptr(now.Add(time.Hour))}).IsExpired(now))
	})

	t.Run("click limit", func(t *testing.T) {
		assert.False(t, (&Link{TotalClicks: 1000}).LimitReached())
		assert.False(t, (&Link{ClickLimit: 3, TotalClicks: 2}).LimitReached())
		assert.True(t, (&Link{ClickLimit: 3, TotalClicks: 3}).LimitReached())
	})

	t.Run("password", func(t *testing.T) {
		assert.False(t, (&Link{}).IsPasswordProtected())
		assert.False(t, (&Link{PasswordHash: ptr("")}).IsPasswordProtected())
		assert.True(t, (&Link{PasswordHash: ptr("$2a$04$x")}).IsPasswordProtected())
	})

	t.Run("ownership", func(t *testing.T) {
		assert.False(t, (&Link{}).OwnedBy(1))
		assert.True(t, (&Link{UserID: ptr(int64(1))}).OwnedBy(1))
		assert.False(t, (&Link{UserID: ptr(int64(2))}).OwnedBy(1))
	})

	t.Run("utm", func(t *testing.T) {
		assert.False(t, (&Link{UTMSource: ptr("")}).HasUTM())
		assert.True(t, (&Link{UTMCampaign: ptr("spring")}).HasUTM())
	})
}

func TestGoneReason(t *testing.T) {
	assert.Equal(t, "deactivated", GoneReason(ErrDeactivated))
	assert.Equal(t, "limit reached", GoneReason(fmt.Errorf("resolve: %w", ErrLimitReached)))
	assert.Equal(t, "gone", GoneReason(ErrGone))

	assert.True(t, errors.Is(ErrDeactivated, ErrGone))
	assert.True(t, errors.Is(ErrLimitReached, ErrGone))
	assert.False(t, errors.Is(ErrExpired, ErrGone))
}

func TestUserIsElevated(t *testing.T) {
	assert.False(t, (&User{Role: RoleUser}).IsElevated())
	assert.True(t, (&User{Role: RoleAdmin}).IsElevated())
	assert.True(t, (&User{Role: RoleSuperAdmin}).IsElevated())
}

func TestSubscriptionIsUnlimited(t *testing.T) {
	assert.True(t, (&SubscriptionType{}).IsUnlimited())
	assert.False(t, (&SubscriptionType{MaxLinks: ptr(10)}).IsUnlimited())
}
