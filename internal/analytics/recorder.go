package analytics

import (
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/pkg/useragent"
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// ClickSink is the part of storage the recorder writes to.
type ClickSink interface {
	HasClickFromIP(ctx context.Context, linkID int64, ip string) (bool, error)
	RecordClick(ctx context.Context, click *domain.Click) (bool, error)
}

// Recorder turns a ClickData into a persisted click row.
type Recorder struct {
	store  ClickSink
	parser *useragent.Parser
	geo    GeoLookup
	node   *snowflake.Node
	log    *zap.Logger
	now    func() time.Time
}

// NewRecorder builds a recorder. geo may be nil; a nil parser classifies by rules only.
func NewRecorder(store ClickSink, parser *useragent.Parser, geo GeoLookup, nodeID int64, log *zap.Logger) (*Recorder, error) {
	if parser == nil {
		parser = useragent.NewParser(log)
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", nodeID, err)
	}

	return &Recorder{
		store:  store,
		parser: parser,
		geo:    geo,
		node:   node,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Record runs the whole ingestion once, without retries.
func (r *Recorder) Record(ctx context.Context, data *ClickData) (*domain.Click, error) {
	click, err := r.Classify(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := r.Save(ctx, click); err != nil {
		return nil, err
	}
	return click, nil
}

// Classify decides uniqueness and derives device, browser, OS and location.
// A click is unique when no earlier click on the link came from the same IP.
func (r *Recorder) Classify(ctx context.Context, data *ClickData) (*domain.Click, error) {
	seen, err := r.store.HasClickFromIP(ctx, data.LinkID, data.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to check click uniqueness: %w", err)
	}

	info := r.parser.Parse(data.UserAgent)

	clickedAt := data.ClickedAt.UTC()
	if data.ClickedAt.IsZero() {
		clickedAt = r.now()
	}

	click := &domain.Click{
		ID:         r.node.Generate().Int64(),
		LinkID:     data.LinkID,
		IPAddress:  data.IPAddress,
		UserAgent:  optional(data.UserAgent),
		Referer:    optional(data.Referer),
		DeviceType: optional(info.DeviceType),
		Browser:    optional(info.Browser),
		OS:         optional(info.OS),
		ClickedAt:  clickedAt,
		IsUnique:   !seen,
	}

	loc := r.locate(ctx, data.IPAddress)
	click.Country = optional(loc.Country)
	click.City = optional(loc.City)

	return click, nil
}

// Save stores the click and bumps the link counters as one unit.
// The click ID makes it safe to call again after an ambiguous failure.
func (r *Recorder) Save(ctx context.Context, click *domain.Click) error {
	inserted, err := r.store.RecordClick(ctx, click)
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	if !inserted {
		r.log.Debug("click already stored", zap.Int64("click_id", click.ID))
	}
	return nil
}

func (r *Recorder) locate(ctx context.Context, ip string) Location {
	if r.geo == nil || ip == "" {
		return UnknownLocation
	}

	loc, err := r.geo.Lookup(ctx, ip)
	if err != nil {
		r.log.Debug("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		return UnknownLocation
	}
	if loc.Country == "" {
		loc.Country = useragent.Unknown
	}
	return loc
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
