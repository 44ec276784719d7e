package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swivel-scan/swivel/internal/adapter"
	"github.com/swivel-scan/swivel/internal/discovery"
	"github.com/swivel-scan/swivel/internal/geo"
	"github.com/swivel-scan/swivel/internal/store"
)

type failingDiscoverer struct{}

func (failingDiscoverer) Discover(ctx context.Context) ([]discovery.Sighting, error) {
	return nil, errors.New("radio gone")
}

func newTestScanner(t *testing.T, d discovery.Discoverer, provider *fakeProvider) (*Scanner, *capturePublisher) {
	t.Helper()

	db, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"), time.Second)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	clock := adapter.NewClock()
	cache := geo.NewCache(provider, clock, time.Millisecond, time.Second)
	publisher := &capturePublisher{}
	pipeline := NewPipeline(store.NewGormStore(db), cache, publisher, clock, 50)

	return New(pipeline, d, publisher, clock, 2*time.Millisecond), publisher
}

func TestScannerStartStop(t *testing.T) {
	provider := &fakeProvider{}
	provider.set(37.7749, -122.4194)
	sc, _ := newTestScanner(t, &discovery.Static{}, provider)

	assert.False(t, sc.IsRunning())

	sc.Start()
	assert.True(t, sc.IsRunning())

	// Starting an already running scanner is a no-op
	sc.Start()
	assert.True(t, sc.IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sc.Stop(ctx))
	assert.False(t, sc.IsRunning())

	// Stopping an idle scanner is a no-op
	require.NoError(t, sc.Stop(ctx))
}

func TestScannerRestartsAfterStop(t *testing.T) {
	provider := &fakeProvider{}
	provider.set(37.7749, -122.4194)
	sc, _ := newTestScanner(t, &discovery.Static{}, provider)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sc.Start()
	require.NoError(t, sc.Stop(ctx))

	sc.Start()
	assert.True(t, sc.IsRunning())
	require.NoError(t, sc.Stop(ctx))
}

func TestScannerDiscoveryFaultIsFatal(t *testing.T) {
	provider := &fakeProvider{}
	provider.set(37.7749, -122.4194)
	sc, publisher := newTestScanner(t, failingDiscoverer{}, provider)

	sc.Start()

	// The loop dies on the discovery fault and transitions back to idle
	require.Eventually(t, func() bool { return !sc.IsRunning() }, time.Second, time.Millisecond)

	faults := publisher.faulted()
	require.Len(t, faults, 1)
	assert.Contains(t, faults[0].Error, "radio gone")
}

func TestScannerCountsConsecutiveFaultedCycles(t *testing.T) {
	provider := &fakeProvider{err: errors.New("gpsd unreachable")}
	sc, _ := newTestScanner(t, &discovery.Static{}, provider)

	sc.Start()

	// Location faults degrade: the loop keeps running and the counter climbs
	require.Eventually(t, func() bool { return sc.ConsecutiveFaultedCycles() >= 2 }, time.Second, time.Millisecond)
	assert.True(t, sc.IsRunning())

	// A healthy cycle resets the counter
	provider.set(37.7749, -122.4194)
	require.Eventually(t, func() bool { return sc.ConsecutiveFaultedCycles() == 0 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sc.Stop(ctx))
}
