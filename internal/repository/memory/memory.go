package memory

import (
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/repository"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStorage keeps links, clicks and users in process memory.
// Every read returns a copy so callers never alias stored records.
type MemStorage struct {
	mu          sync.RWMutex
	links       map[int64]*domain.Link
	deleted     map[int64]time.Time
	clicks      []domain.Click
	clickIDs    map[int64]struct{}
	users       map[int64]*domain.User
	plans       map[int16]*domain.SubscriptionType
	linkCounter int64
	userCounter int64
	now         func() time.Time
}

var _ repository.Storage = (*MemStorage)(nil)

func New() *MemStorage {
	return &MemStorage{
		links:    make(map[int64]*domain.Link),
		deleted:  make(map[int64]time.Time),
		clickIDs: make(map[int64]struct{}),
		users:    make(map[int64]*domain.User),
		plans:    make(map[int16]*domain.SubscriptionType),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemStorage) Ping(_ context.Context) error {
	return nil
}

// --- Link Methods ---

func (s *MemStorage) CreateLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.codeTakenLocked(link.ShortCode) {
		return repository.ErrCodeTaken
	}
	if link.CustomAlias != nil && s.codeTakenLocked(*link.CustomAlias) {
		return repository.ErrCodeTaken
	}

	s.linkCounter++
	now := s.now()
	link.ID = s.linkCounter
	link.CreatedAt = now
	link.UpdatedAt = now

	stored := *link
	stored.Tags = append([]string(nil), link.Tags...)
	s.links[link.ID] = &stored
	return nil
}

func (s *MemStorage) GetLinkByCode(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, link := range s.links {
		if _, gone := s.deleted[id]; gone {
			continue
		}
		if matchesCode(link, code) {
			cp := *link
			return &cp, nil
		}
	}
	return nil, repository.ErrLinkNotFound
}

func (s *MemStorage) GetLinkByID(_ context.Context, id int64) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.liveLocked(id)
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (s *MemStorage) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codeTakenLocked(code), nil
}

func (s *MemStorage) UpdateLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.liveLocked(link.ID)
	if !ok {
		return repository.ErrLinkNotFound
	}

	stored.Title = link.Title
	stored.Description = link.Description
	stored.ExpiresAt = link.ExpiresAt
	stored.IsActive = link.IsActive
	stored.Tags = append([]string(nil), link.Tags...)
	stored.UTMSource = link.UTMSource
	stored.UTMMedium = link.UTMMedium
	stored.UTMCampaign = link.UTMCampaign
	stored.UpdatedAt = s.now()
	return nil
}

func (s *MemStorage) SoftDeleteLink(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.liveLocked(id); !ok {
		return repository.ErrLinkNotFound
	}
	s.deleted[id] = s.now()
	return nil
}

func (s *MemStorage) CountLinksByOwner(_ context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.ownedLocked(&userID))), nil
}

func (s *MemStorage) TopLinks(_ context.Context, ownerID *int64, limit int) ([]*domain.Link, error) {
	s.mu.RLock()
	links := s.ownedLocked(ownerID)
	s.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		if links[i].TotalClicks != links[j].TotalClicks {
			return links[i].TotalClicks > links[j].TotalClicks
		}
		return links[i].ID < links[j].ID
	})
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

func (s *MemStorage) LinkTotals(_ context.Context, ownerID *int64, now time.Time) (repository.LinkTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals repository.LinkTotals
	for _, link := range s.ownedLocked(ownerID) {
		totals.Total++
		totals.TotalClicks += link.TotalClicks
		totals.UniqueClicks += link.UniqueClicks
		expired := link.ExpiresAt != nil && !link.ExpiresAt.After(now)
		if expired {
			totals.Expired++
		} else if link.IsActive {
			totals.Active++
		}
	}
	return totals, nil
}

// --- Click Methods ---

func (s *MemStorage) HasClickFromIP(_ context.Context, linkID int64, ip string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clicks {
		if c.LinkID == linkID && c.IPAddress == ip {
			return true, nil
		}
	}
	return false, nil
}

// RecordClick appends the click and bumps the link counters under one lock.
// A click ID that is already stored changes nothing.
func (s *MemStorage) RecordClick(_ context.Context, click *domain.Click) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.clickIDs[click.ID]; dup {
		return false, nil
	}
	link, ok := s.liveLocked(click.LinkID)
	if !ok {
		return false, repository.ErrLinkNotFound
	}

	link.TotalClicks++
	if click.IsUnique {
		link.UniqueClicks++
	}
	cp := *click
	cp.Link = nil
	s.clicks = append(s.clicks, cp)
	s.clickIDs[click.ID] = struct{}{}
	return true, nil
}

func (s *MemStorage) LastClickAt(_ context.Context, linkID int64) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *time.Time
	for _, c := range s.clicks {
		if c.LinkID != linkID {
			continue
		}
		if last == nil || c.ClickedAt.After(*last) {
			t := c.ClickedAt
			last = &t
		}
	}
	return last, nil
}

func (s *MemStorage) ClickPoints(_ context.Context, scope repository.ClickScope, since time.Time) ([]repository.ClickPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var points []repository.ClickPoint
	for _, c := range s.clicks {
		if c.ClickedAt.Before(since) {
			continue
		}
		if scope.LinkID != nil && c.LinkID != *scope.LinkID {
			continue
		}
		link, ok := s.liveLocked(c.LinkID)
		if !ok {
			continue
		}
		if scope.OwnerID != nil && !link.OwnedBy(*scope.OwnerID) {
			continue
		}
		points = append(points, repository.ClickPoint{ClickedAt: c.ClickedAt, IsUnique: c.IsUnique})
	}
	return points, nil
}

func (s *MemStorage) CountClicks(_ context.Context, linkID int64, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, c := range s.clicks {
		if c.LinkID == linkID && !c.ClickedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) CountByDimension(_ context.Context, linkID int64, dim repository.Dimension, since time.Time, limit int) ([]repository.DimensionCount, error) {
	if !dim.Valid() {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}

	s.mu.RLock()
	counts := make(map[string]int64)
	for _, c := range s.clicks {
		if c.LinkID != linkID || c.ClickedAt.Before(since) {
			continue
		}
		if v := dimensionValue(&c, dim); v != "" {
			counts[v]++
		}
	}
	s.mu.RUnlock()

	results := make([]repository.DimensionCount, 0, len(counts))
	for value, count := range counts {
		results = append(results, repository.DimensionCount{Value: value, Count: count})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].Value < results[j].Value
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// --- User Methods ---

// AddPlan registers a subscription plan used by URLQuota.
func (s *MemStorage) AddPlan(plan domain.SubscriptionType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = &plan
}

// AddUser registers a user and assigns an ID when none is set.
func (s *MemStorage) AddUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == 0 {
		s.userCounter++
		user.ID = s.userCounter
	} else if user.ID > s.userCounter {
		s.userCounter = user.ID
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	cp := *user
	s.users[user.ID] = &cp
}

func (s *MemStorage) FindUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return s.withPlanLocked(user), nil
}

func (s *MemStorage) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return s.withPlanLocked(user), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *MemStorage) URLQuota(ctx context.Context, userID int64) (int, error) {
	user, err := s.FindUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.SubscriptionType == nil {
		return repository.DefaultURLQuota, nil
	}
	if user.SubscriptionType.IsUnlimited() {
		return repository.UnlimitedQuota, nil
	}
	return *user.SubscriptionType.MaxLinks, nil
}

func (s *MemStorage) UserTotals(_ context.Context, since time.Time) (repository.UserTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals repository.UserTotals
	for _, user := range s.users {
		totals.Total++
		if user.IsActive {
			totals.Active++
		}
		if !user.CreatedAt.Before(since) {
			totals.NewSince++
		}
	}
	return totals, nil
}

// --- helpers ---

func (s *MemStorage) liveLocked(id int64) (*domain.Link, bool) {
	link, ok := s.links[id]
	if !ok {
		return nil, false
	}
	if _, gone := s.deleted[id]; gone {
		return nil, false
	}
	return link, true
}

func (s *MemStorage) codeTakenLocked(code string) bool {
	for _, link := range s.links {
		if matchesCode(link, code) {
			return true
		}
	}
	return false
}

// ownedLocked returns copies of live links, filtered by owner when ownerID is set.
func (s *MemStorage) ownedLocked(ownerID *int64) []*domain.Link {
	var out []*domain.Link
	for id, link := range s.links {
		if _, gone := s.deleted[id]; gone {
			continue
		}
		if ownerID != nil && !link.OwnedBy(*ownerID) {
			continue
		}
		cp := *link
		out = append(out, &cp)
	}
	return out
}

func (s *MemStorage) withPlanLocked(user *domain.User) *domain.User {
	cp := *user
	if plan, ok := s.plans[user.SubscriptionTypeID]; ok {
		p := *plan
		cp.SubscriptionType = &p
	}
	return &cp
}

func matchesCode(link *domain.Link, code string) bool {
	return link.ShortCode == code || (link.CustomAlias != nil && *link.CustomAlias == code)
}

func dimensionValue(c *domain.Click, dim repository.Dimension) string {
	var v *string
	switch dim {
	case repository.DimensionCountry:
		v = c.Country
	case repository.DimensionDevice:
		v = c.DeviceType
	case repository.DimensionBrowser:
		v = c.Browser
	case repository.DimensionReferrer:
		v = c.Referer
	case repository.DimensionOS:
		v = c.OS
	}
	if v == nil {
		return ""
	}
	return *v
}
