package store

import (
	"context"
	"time"

	"github.com/swivel-scan/swivel/internal/store/schema"
)

// Store defines the interface for the sighting ledger. Mutations keep the
// device and place-device aggregates consistent; reads serve the reports.
type Store interface {
	// Transaction runs fn inside one database transaction. The pipeline uses
	// one transaction per sighting so a failure rolls back only that
	// sighting's changes.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	// UpsertDevice fetches or creates the device row for an address. On
	// fetch it increments times_seen and advances last_seen; on create it
	// sets times_seen=1, first_seen=last_seen=now and stores the geodata
	// string of the current fix. Returns created=true for a new row.
	UpsertDevice(ctx context.Context, address, name, geodata string, now time.Time) (*schema.Device, bool, error)

	// ListPlaces returns all places in ascending ID order, the order place
	// resolution enumerates them in.
	ListPlaces(ctx context.Context) ([]schema.Place, error)

	// CreatePlace creates a new anonymous place; it never checks for overlap
	// with existing places.
	CreatePlace(ctx context.Context, latitude, longitude, radius float64) (*schema.Place, error)

	// GetPlaceDevice returns the join row for (place, device), or nil when
	// the device has never been linked to the place.
	GetPlaceDevice(ctx context.Context, placeID int64, deviceID string) (*schema.PlaceDevice, error)

	// LinkDeviceToPlace fetches or creates the (place, device) join row. On
	// fetch it increments the row's times_seen; on create it sets
	// times_seen=1. Returns created=true for a new row.
	LinkDeviceToPlace(ctx context.Context, placeID int64, deviceID string) (*schema.PlaceDevice, bool, error)

	// RecordRelocation appends a relocation row capturing the device's prior
	// geodata as old and newGeodata as new, then overwrites the device's
	// geodata with newGeodata.
	RecordRelocation(ctx context.Context, device *schema.Device, newGeodata string, now time.Time) error

	// RecordSeen appends one row to the append-only sighting log.
	RecordSeen(ctx context.Context, deviceID string, placeID int64, rssi int, fingerprint string, timestamp time.Time) error

	// MultiPlaceDevices reports devices linked to more than one place.
	MultiPlaceDevices(ctx context.Context) ([]MultiPlaceDevice, error)

	// MultiPlaceFingerprintGroups reports sightings grouped by fingerprint,
	// restricted to fingerprints seen at more than one distinct place. This
	// is the address-randomization re-identification view.
	MultiPlaceFingerprintGroups(ctx context.Context) ([]FingerprintGroup, error)

	// Recreate drops and recreates all ledger tables.
	Recreate(ctx context.Context) error
}
