// Package cache holds the resolution hint layer that sits in front of the link store.
//
// Entries carry only what a redirect needs. They are advisory: every
// resolution still re-checks the authoritative link record, so a stale entry
// can cost a lookup but never change a redirect decision.
package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// KeyPrefix namespaces resolution entries in shared cache backends.
const KeyPrefix = "url:"

// DefaultTTL is how long a resolution hint lives.
const DefaultTTL = 30 * time.Minute

// Resolution is the cached hint for a short code or alias.
type Resolution struct {
	Destination       string `json:"destination"`
	PasswordProtected bool   `json:"password_protected"`
}

// Stats counts lookups served by a cache.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// ResolutionCache is safe for concurrent use without external coordination.
type ResolutionCache interface {
	Get(ctx context.Context, code string) (*Resolution, bool, error)
	Set(ctx context.Context, code string, r Resolution, ttl time.Duration) error
	Delete(ctx context.Context, codes ...string) error
	Stats() Stats
}

// Key returns the storage key for a code.
func Key(code string) string {
	return KeyPrefix + code
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Noop never stores anything; every lookup is a miss.
type Noop struct {
	counters
}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Get(context.Context, string) (*Resolution, bool, error) {
	n.record(false)
	return nil, false, nil
}

func (n *Noop) Set(context.Context, string, Resolution, time.Duration) error { return nil }

func (n *Noop) Delete(context.Context, ...string) error { return nil }

func (n *Noop) Stats() Stats { return n.snapshot() }
