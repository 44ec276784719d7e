package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }

func (c *fakeClock) After(d time.Duration) <-chan time.Time { return time.After(0) }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeProvider struct {
	lat, lon float64
	ok       bool
	err      error
	calls    int
}

func (p *fakeProvider) CurrentFix(ctx context.Context, timeout time.Duration) (float64, float64, bool, error) {
	p.calls++
	return p.lat, p.lon, p.ok, p.err
}

func TestCacheServesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	provider := &fakeProvider{lat: 37.0, lon: -122.0, ok: true}
	cache := NewCache(provider, clock, time.Minute, time.Second)

	fix, ok, err := cache.CurrentGeodata(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, GeoData{Latitude: 37.0, Longitude: -122.0}, fix)
	assert.Equal(t, 1, provider.calls)

	// Every lookup inside the TTL is served from the cache
	for range 10 {
		clock.advance(5 * time.Second)
		_, ok, err = cache.CurrentGeodata(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 1, provider.calls)

	// Past the TTL the provider is consulted again
	clock.advance(time.Minute)
	fix, ok, err = cache.CurrentGeodata(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, GeoData{Latitude: 37.0, Longitude: -122.0}, fix)
}

func TestCacheTTLBoundsFailingProvider(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	provider := &fakeProvider{err: errors.New("gpsd unreachable")}
	cache := NewCache(provider, clock, time.Minute, time.Second)

	_, ok, err := cache.CurrentGeodata(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)

	// A failing provider is still only queried once per TTL interval
	for range 5 {
		clock.advance(time.Second)
		_, _, _ = cache.CurrentGeodata(context.Background())
	}
	assert.Equal(t, 1, provider.calls)
}

func TestCacheReusesLastFixOnProviderError(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	provider := &fakeProvider{lat: 51.5, lon: -0.12, ok: true}
	cache := NewCache(provider, clock, time.Minute, time.Second)

	fix, ok, err := cache.CurrentGeodata(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// Provider starts failing after the first good fix
	provider.err = errors.New("gpsd unreachable")
	provider.ok = false
	clock.advance(2 * time.Minute)

	stale, ok, err := cache.CurrentGeodata(context.Background())
	assert.True(t, ok, "last good fix should be reused")
	assert.Error(t, err, "degraded result carries the provider error")
	assert.Equal(t, fix, stale)
}

func TestCacheNoFixWithoutError(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	provider := &fakeProvider{ok: false}
	cache := NewCache(provider, clock, time.Minute, time.Second)

	_, ok, err := cache.CurrentGeodata(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestCacheZeroTTLUsesDefault(t *testing.T) {
	cache := NewCache(&fakeProvider{}, &fakeClock{}, 0, 0)
	assert.Equal(t, DefaultCacheTTL, cache.ttl)
	assert.Equal(t, 10*time.Second, cache.fixTimeout)
}
