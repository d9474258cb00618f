package analytics

import (
	"ShrtLink-Backend/pkg/useragent"
	"context"
)

// Location is what a geo lookup knows about an IP.
type Location struct {
	Country string
	City    string
}

// UnknownLocation is recorded when no lookup is configured or it fails.
var UnknownLocation = Location{Country: useragent.Unknown}

// GeoLookup resolves an IP address to a location. Optional.
type GeoLookup interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}
