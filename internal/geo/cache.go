package geo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/swivel-scan/swivel/internal/adapter"
	"github.com/swivel-scan/swivel/internal/location"
)

// DefaultCacheTTL bounds how often the location provider is queried: with the
// default 5s scan period, up to 12 cycles share one fix.
const DefaultCacheTTL = time.Minute

// Cache memoizes the most recent location fix for a bounded interval. It is an
// explicit struct injected into the pipeline so independent pipelines (and
// tests) never share cached state. The scan scheduler and the location API
// both read through it, hence the lock.
type Cache struct {
	provider   location.Provider
	clock      adapter.Clock
	ttl        time.Duration
	fixTimeout time.Duration

	mu        sync.Mutex
	last      GeoData
	hasFix    bool
	fetchedAt time.Time
}

// NewCache creates a geodata cache over the given provider. A zero ttl uses
// DefaultCacheTTL.
func NewCache(provider location.Provider, clock adapter.Clock, ttl, fixTimeout time.Duration) *Cache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	if fixTimeout == 0 {
		fixTimeout = 10 * time.Second
	}
	return &Cache{
		provider:   provider,
		clock:      clock,
		ttl:        ttl,
		fixTimeout: fixTimeout,
	}
}

// CurrentGeodata returns the cached fix when the provider was consulted less
// than the TTL ago, otherwise queries the provider. The TTL gates every
// provider attempt, successful or not, so the provider is never hit more than
// once per interval. When the provider reports no fix or fails, the last good
// fix is reused (ok=true, stale); with no prior fix it returns ok=false and
// the caller must skip place resolution for the cycle. A non-nil error with
// ok=true is a degraded result worth a warning, not a failure.
func (c *Cache) CurrentGeodata(ctx context.Context) (GeoData, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && c.clock.Since(c.fetchedAt) <= c.ttl {
		return c.last, c.hasFix, nil
	}

	c.fetchedAt = c.clock.Now()

	lat, lon, ok, err := c.provider.CurrentFix(ctx, c.fixTimeout)
	if err != nil {
		if c.hasFix {
			return c.last, true, fmt.Errorf("location provider failed, reusing last fix: %w", err)
		}
		return GeoData{}, false, fmt.Errorf("location provider failed with no prior fix: %w", err)
	}
	if !ok {
		return c.last, c.hasFix, nil
	}

	c.last = GeoData{Latitude: lat, Longitude: lon}
	c.hasFix = true

	return c.last, true, nil
}
