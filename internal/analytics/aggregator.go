package analytics

import (
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	dayLayout = "2006-01-02"

	dashboardDays        = 30
	userTopLinks         = 5
	adminTopLinks        = 10
	referrerBreakdownCap = 10
)

// ReportStore is everything the aggregator reads.
type ReportStore interface {
	repository.LinkStore
	repository.ClickStore
	repository.UserDirectory
}

// AggregatorConfig bounds the requested window.
type AggregatorConfig struct {
	DefaultDays int
	MaxDays     int
}

// DailyPoint is one day of the series.
type DailyPoint struct {
	Date         string `json:"date"`
	Clicks       int64  `json:"clicks"`
	UniqueClicks int64  `json:"unique_clicks"`
}

// Breakdown is one value of a dimension with its share of the window.
type Breakdown struct {
	Value      string  `json:"value"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// LinkReport is the per-link analytics answer.
type LinkReport struct {
	LinkID       int64        `json:"link_id"`
	ShortCode    string       `json:"short_code"`
	OriginalURL  string       `json:"original_url"`
	Days         int          `json:"days"`
	TotalClicks  int64        `json:"total_clicks"`
	UniqueClicks int64        `json:"unique_clicks"`
	WindowClicks int64        `json:"window_clicks"`
	LastClickAt  *time.Time   `json:"last_click_at,omitempty"`
	Daily        []DailyPoint `json:"daily"`
	Countries    []Breakdown  `json:"countries"`
	Devices      []Breakdown  `json:"devices"`
	Browsers     []Breakdown  `json:"browsers"`
	Referrers    []Breakdown  `json:"referrers"`
	OS           []Breakdown  `json:"operating_systems"`
}

// LinkSummary is a row of a top links table.
type LinkSummary struct {
	ID           int64     `json:"id"`
	ShortCode    string    `json:"short_code"`
	OriginalURL  string    `json:"original_url"`
	Title        *string   `json:"title,omitempty"`
	TotalClicks  int64     `json:"total_clicks"`
	UniqueClicks int64     `json:"unique_clicks"`
	CreatedAt    time.Time `json:"created_at"`
}

// Dashboard aggregates over every link of a scope.
type Dashboard struct {
	TotalLinks   int64         `json:"total_links"`
	ActiveLinks  int64         `json:"active_links"`
	ExpiredLinks int64         `json:"expired_links"`
	TotalClicks  int64         `json:"total_clicks"`
	UniqueClicks int64         `json:"unique_clicks"`
	TopLinks     []LinkSummary `json:"top_links"`
	Daily        []DailyPoint  `json:"daily"`
}

// AdminDashboard adds user counts to the global dashboard.
type AdminDashboard struct {
	Dashboard
	TotalUsers        int64 `json:"total_users"`
	ActiveUsers       int64 `json:"active_users"`
	NewUsersThisMonth int64 `json:"new_users_this_month"`
}

// Aggregator computes analytics on demand from stored clicks.
type Aggregator struct {
	store  ReportStore
	config AggregatorConfig
	log    *zap.Logger
	now    func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(store ReportStore, config AggregatorConfig, log *zap.Logger) *Aggregator {
	if config.DefaultDays <= 0 {
		config.DefaultDays = 30
	}
	if config.MaxDays <= 0 {
		config.MaxDays = 365
	}
	return &Aggregator{
		store:  store,
		config: config,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// LinkReport returns analytics for one link over the last days UTC days,
// today included. Only the owner or an elevated user may read it.
func (a *Aggregator) LinkReport(ctx context.Context, linkID, requesterID int64, days int) (*LinkReport, error) {
	link, err := a.store.GetLinkByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load link: %w", err)
	}

	if !link.OwnedBy(requesterID) {
		if err := a.requireElevated(ctx, requesterID); err != nil {
			return nil, err
		}
	}

	days = a.clampDays(days)
	start := windowStart(a.now(), days)

	report := &LinkReport{
		LinkID:       link.ID,
		ShortCode:    link.ShortCode,
		OriginalURL:  link.OriginalURL,
		Days:         days,
		TotalClicks:  link.TotalClicks,
		UniqueClicks: link.UniqueClicks,
	}

	if report.LastClickAt, err = a.store.LastClickAt(ctx, linkID); err != nil {
		return nil, fmt.Errorf("failed to load last click: %w", err)
	}

	if report.WindowClicks, err = a.store.CountClicks(ctx, linkID, start); err != nil {
		return nil, fmt.Errorf("failed to count clicks: %w", err)
	}

	points, err := a.store.ClickPoints(ctx, repository.ClickScope{LinkID: &linkID}, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load click series: %w", err)
	}
	report.Daily = DailySeries(points, start, days)

	breakdowns := []struct {
		dim   repository.Dimension
		limit int
		dst   *[]Breakdown
	}{
		{repository.DimensionCountry, 0, &report.Countries},
		{repository.DimensionDevice, 0, &report.Devices},
		{repository.DimensionBrowser, 0, &report.Browsers},
		{repository.DimensionReferrer, referrerBreakdownCap, &report.Referrers},
		{repository.DimensionOS, 0, &report.OS},
	}
	for _, b := range breakdowns {
		counts, err := a.store.CountByDimension(ctx, linkID, b.dim, start, b.limit)
		if err != nil {
			return nil, fmt.Errorf("failed to group clicks by %s: %w", b.dim, err)
		}
		*b.dst = withPercentages(counts, report.WindowClicks)
	}

	return report, nil
}

// UserDashboard aggregates over the links owned by userID.
func (a *Aggregator) UserDashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	return a.dashboard(ctx, &userID, userTopLinks)
}

// AdminDashboard aggregates over all links and users. Elevated users only.
func (a *Aggregator) AdminDashboard(ctx context.Context, requesterID int64) (*AdminDashboard, error) {
	if err := a.requireElevated(ctx, requesterID); err != nil {
		return nil, err
	}

	dash, err := a.dashboard(ctx, nil, adminTopLinks)
	if err != nil {
		return nil, err
	}

	now := a.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	users, err := a.store.UserTotals(ctx, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	return &AdminDashboard{
		Dashboard:         *dash,
		TotalUsers:        users.Total,
		ActiveUsers:       users.Active,
		NewUsersThisMonth: users.NewSince,
	}, nil
}

func (a *Aggregator) dashboard(ctx context.Context, ownerID *int64, top int) (*Dashboard, error) {
	now := a.now()

	totals, err := a.store.LinkTotals(ctx, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate links: %w", err)
	}

	links, err := a.store.TopLinks(ctx, ownerID, top)
	if err != nil {
		return nil, fmt.Errorf("failed to load top links: %w", err)
	}

	start := windowStart(now, dashboardDays)
	points, err := a.store.ClickPoints(ctx, repository.ClickScope{OwnerID: ownerID}, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load click series: %w", err)
	}

	dash := &Dashboard{
		TotalLinks:   totals.Total,
		ActiveLinks:  totals.Active,
		ExpiredLinks: totals.Expired,
		TotalClicks:  totals.TotalClicks,
		UniqueClicks: totals.UniqueClicks,
		TopLinks:     make([]LinkSummary, 0, len(links)),
		Daily:        DailySeries(points, start, dashboardDays),
	}
	for _, l := range links {
		dash.TopLinks = append(dash.TopLinks, LinkSummary{
			ID:           l.ID,
			ShortCode:    l.ShortCode,
			OriginalURL:  l.OriginalURL,
			Title:        l.Title,
			TotalClicks:  l.TotalClicks,
			UniqueClicks: l.UniqueClicks,
			CreatedAt:    l.CreatedAt,
		})
	}
	return dash, nil
}

func (a *Aggregator) requireElevated(ctx context.Context, userID int64) error {
	user, err := a.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.ErrForbidden
		}
		return fmt.Errorf("failed to load requester: %w", err)
	}
	if !user.IsElevated() {
		return domain.ErrForbidden
	}
	return nil
}

func (a *Aggregator) clampDays(days int) int {
	if days <= 0 {
		return a.config.DefaultDays
	}
	if days > a.config.MaxDays {
		return a.config.MaxDays
	}
	return days
}

// windowStart is midnight UTC of the first day of a days-long window ending today.
func windowStart(now time.Time, days int) time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(days - 1))
}

// DailySeries buckets points into exactly days consecutive UTC days from start,
// zero days included.
func DailySeries(points []repository.ClickPoint, start time.Time, days int) []DailyPoint {
	series := make([]DailyPoint, days)
	index := make(map[string]int, days)
	for i := range series {
		date := start.AddDate(0, 0, i).Format(dayLayout)
		series[i].Date = date
		index[date] = i
	}

	for _, p := range points {
		i, ok := index[p.ClickedAt.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		series[i].Clicks++
		if p.IsUnique {
			series[i].UniqueClicks++
		}
	}
	return series
}

func withPercentages(counts []repository.DimensionCount, total int64) []Breakdown {
	out := make([]Breakdown, 0, len(counts))
	for _, c := range counts {
		out = append(out, Breakdown{Value: c.Value, Count: c.Count, Percentage: percentage(c.Count, total)})
	}
	return out
}

func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}
