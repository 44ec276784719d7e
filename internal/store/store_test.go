package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swivel-scan/swivel/internal/store/schema"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"), time.Second)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	return NewGormStore(db)
}

func TestUpsertDevice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	device, created, err := s.UpsertDevice(ctx, "AA:BB:CC:DD:EE:FF", "Headphones", "37.77, -122.41", t0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", device.ID)
	assert.Equal(t, "Headphones", device.Name)
	assert.Equal(t, "37.77, -122.41", device.Geodata)
	assert.Equal(t, int64(1), device.TimesSeen)
	assert.Equal(t, t0, device.FirstSeen.UTC())
	assert.Equal(t, t0, device.LastSeen.UTC())

	// Second sighting: times_seen and last_seen advance, everything else
	// stays as first recorded
	t1 := t0.Add(5 * time.Second)
	device, created, err = s.UpsertDevice(ctx, "AA:BB:CC:DD:EE:FF", "Renamed", "0, 0", t1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(2), device.TimesSeen)
	assert.Equal(t, t0, device.FirstSeen.UTC())
	assert.Equal(t, t1, device.LastSeen.UTC())
	assert.Equal(t, "Headphones", device.Name, "name is fixed at first sighting")
	assert.Equal(t, "37.77, -122.41", device.Geodata, "geodata only moves via relocations")
}

func TestListPlacesAscendingID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := range 3 {
		_, err := s.CreatePlace(ctx, float64(i), float64(i), 50)
		require.NoError(t, err)
	}

	places, err := s.ListPlaces(ctx)
	require.NoError(t, err)
	require.Len(t, places, 3)
	for i := 1; i < len(places); i++ {
		assert.Greater(t, places[i].ID, places[i-1].ID)
	}
}

func TestLinkDeviceToPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	device, _, err := s.UpsertDevice(ctx, "AA:BB:CC:DD:EE:01", "Tag", "1, 1", now)
	require.NoError(t, err)
	place, err := s.CreatePlace(ctx, 1, 1, 50)
	require.NoError(t, err)

	// Absent link reads as nil without error
	pd, err := s.GetPlaceDevice(ctx, place.ID, device.ID)
	require.NoError(t, err)
	assert.Nil(t, pd)

	pd, created, err := s.LinkDeviceToPlace(ctx, place.ID, device.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), pd.TimesSeen)

	pd, created, err = s.LinkDeviceToPlace(ctx, place.ID, device.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(2), pd.TimesSeen)
}

func TestRecordRelocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	device, _, err := s.UpsertDevice(ctx, "AA:BB:CC:DD:EE:02", "Tag", "1, 1", now)
	require.NoError(t, err)

	require.NoError(t, s.RecordRelocation(ctx, device, "2, 2", now))
	assert.Equal(t, "2, 2", device.Geodata, "in-memory device moves forward")

	// The stored device moved too
	refetched, created, err := s.UpsertDevice(ctx, device.ID, "Tag", "ignored", now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "2, 2", refetched.Geodata)

	// A second relocation chains from the first
	require.NoError(t, s.RecordRelocation(ctx, device, "3, 3", now))

	gs := s.(*gormStore)
	var relocations []schema.Relocation
	require.NoError(t, gs.db.Order("id ASC").Find(&relocations).Error)
	require.Len(t, relocations, 2)
	assert.Equal(t, "1, 1", relocations[0].OldGeodata)
	assert.Equal(t, "2, 2", relocations[0].NewGeodata)
	assert.Equal(t, "2, 2", relocations[1].OldGeodata)
	assert.Equal(t, "3, 3", relocations[1].NewGeodata)
}

func TestRecordSeenAppends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	device, _, err := s.UpsertDevice(ctx, "AA:BB:CC:DD:EE:03", "Tag", "1, 1", now)
	require.NoError(t, err)
	place, err := s.CreatePlace(ctx, 1, 1, 50)
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, s.RecordSeen(ctx, device.ID, place.ID, -40-i, "180f,180a", now.Add(time.Duration(i)*time.Second)))
	}

	gs := s.(*gormStore)
	var count int64
	require.NoError(t, gs.db.Model(&schema.Seen{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx Store) error {
		if _, _, err := tx.UpsertDevice(ctx, "AA:BB:CC:DD:EE:04", "Tag", "1, 1", now); err != nil {
			return err
		}
		if _, err := tx.CreatePlace(ctx, 1, 1, 50); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	places, err := s.ListPlaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, places)

	gs := s.(*gormStore)
	var count int64
	require.NoError(t, gs.db.Model(&schema.Device{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecreateWipesLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, _, err := s.UpsertDevice(ctx, "AA:BB:CC:DD:EE:05", "Tag", "1, 1", now)
	require.NoError(t, err)
	_, err = s.CreatePlace(ctx, 1, 1, 50)
	require.NoError(t, err)

	require.NoError(t, s.Recreate(ctx))

	places, err := s.ListPlaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, places)

	// The store is usable again after recreation
	_, created, err := s.UpsertDevice(ctx, "AA:BB:CC:DD:EE:05", "Tag", "1, 1", now)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMultiPlaceDevices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	home, err := s.CreatePlace(ctx, 0, 0, 50)
	require.NoError(t, err)
	office, err := s.CreatePlace(ctx, 1, 1, 50)
	require.NoError(t, err)

	// roamer visits both places, homebody stays put
	roamer, _, err := s.UpsertDevice(ctx, "AA:00:00:00:00:01", "Roamer", "0, 0", now)
	require.NoError(t, err)
	homebody, _, err := s.UpsertDevice(ctx, "AA:00:00:00:00:02", "Homebody", "0, 0", now)
	require.NoError(t, err)

	_, _, err = s.LinkDeviceToPlace(ctx, home.ID, roamer.ID)
	require.NoError(t, err)
	_, _, err = s.LinkDeviceToPlace(ctx, office.ID, roamer.ID)
	require.NoError(t, err)
	_, _, err = s.LinkDeviceToPlace(ctx, home.ID, homebody.ID)
	require.NoError(t, err)

	report, err := s.MultiPlaceDevices(ctx)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, roamer.ID, report[0].DeviceID)
	assert.Equal(t, "Roamer", report[0].DeviceName)
	require.Len(t, report[0].Places, 2)
	assert.Equal(t, home.ID, report[0].Places[0].ID)
	assert.Equal(t, office.ID, report[0].Places[1].ID)
}

func TestMultiPlaceFingerprintGroups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	home, err := s.CreatePlace(ctx, 0, 0, 50)
	require.NoError(t, err)
	office, err := s.CreatePlace(ctx, 1, 1, 50)
	require.NoError(t, err)

	// Two random addresses sharing one fingerprint across two places: the
	// re-identification case
	a, _, err := s.UpsertDevice(ctx, "AA:00:00:00:00:11", "Unknown", "0, 0", now)
	require.NoError(t, err)
	b, _, err := s.UpsertDevice(ctx, "AA:00:00:00:00:12", "Unknown", "1, 1", now)
	require.NoError(t, err)
	// Single-place fingerprint, must not appear
	c, _, err := s.UpsertDevice(ctx, "AA:00:00:00:00:13", "Unknown", "0, 0", now)
	require.NoError(t, err)
	// Devices with no advertised services, must not be grouped together
	d, _, err := s.UpsertDevice(ctx, "AA:00:00:00:00:14", "Unknown", "0, 0", now)
	require.NoError(t, err)

	shared := "180f,180a"
	require.NoError(t, s.RecordSeen(ctx, a.ID, home.ID, -40, shared, now))
	require.NoError(t, s.RecordSeen(ctx, a.ID, home.ID, -42, shared, now.Add(time.Second)))
	require.NoError(t, s.RecordSeen(ctx, b.ID, office.ID, -60, shared, now.Add(2*time.Second)))
	require.NoError(t, s.RecordSeen(ctx, b.ID, office.ID, -61, shared, now.Add(3*time.Second)))
	require.NoError(t, s.RecordSeen(ctx, c.ID, home.ID, -50, "fe9f", now))
	require.NoError(t, s.RecordSeen(ctx, d.ID, home.ID, -50, "", now))
	require.NoError(t, s.RecordSeen(ctx, d.ID, office.ID, -50, "", now))

	groups, err := s.MultiPlaceFingerprintGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	group := groups[0]
	assert.Equal(t, shared, group.Fingerprint)
	require.Len(t, group.Entries, 4)
	assert.Equal(t, a.ID, group.Entries[0].DeviceID)
	assert.Equal(t, home.ID, group.Entries[0].Place.ID)
	assert.Equal(t, b.ID, group.Entries[3].DeviceID)
	assert.Equal(t, office.ID, group.Entries[3].Place.ID)
}
