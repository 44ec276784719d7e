package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/swivel-scan/swivel/internal/store/schema"
)

// DriverSQLite and DriverPostgres select the database backend.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm connection in the Store interface.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Open connects to the database with retry and returns the gorm handle.
// SQLite is the default backend; Postgres is available for shared
// deployments. Failure to open the store is fatal at startup, there is no
// degraded mode.
func Open(driver, dsn string, maxElapsed time.Duration) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed

	return backoff.RetryWithData(func() (*gorm.DB, error) {
		db, err := gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, nil
	}, policy)
}

// Migrate creates the ledger tables and indexes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Device{},
		&schema.Place{},
		&schema.PlaceDevice{},
		&schema.Seen{},
		&schema.Relocation{},
	)
}

// Transaction runs fn inside one transaction, committing on nil and rolling
// back on error.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// UpsertDevice fetches or creates the device row for an address.
func (s *gormStore) UpsertDevice(ctx context.Context, address, name, geodata string, now time.Time) (*schema.Device, bool, error) {
	var device schema.Device
	err := s.db.WithContext(ctx).Where("id = ?", address).First(&device).Error
	if err == nil {
		device.TimesSeen++
		device.LastSeen = now
		if err := s.db.WithContext(ctx).Model(&device).
			Updates(map[string]interface{}{"times_seen": device.TimesSeen, "last_seen": device.LastSeen}).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update device %s: %w", address, err)
		}
		return &device, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to get device %s: %w", address, err)
	}

	device = schema.Device{
		ID:        address,
		Name:      name,
		Geodata:   geodata,
		TimesSeen: 1,
		FirstSeen: now,
		LastSeen:  now,
	}
	if err := s.db.WithContext(ctx).Create(&device).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create device %s: %w", address, err)
	}

	return &device, true, nil
}

// ListPlaces returns all places in ascending ID order.
func (s *gormStore) ListPlaces(ctx context.Context) ([]schema.Place, error) {
	var places []schema.Place
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&places).Error; err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	return places, nil
}

// CreatePlace creates a new anonymous place at the given coordinates.
func (s *gormStore) CreatePlace(ctx context.Context, latitude, longitude, radius float64) (*schema.Place, error) {
	place := schema.Place{
		Latitude:  latitude,
		Longitude: longitude,
		Radius:    radius,
	}
	if err := s.db.WithContext(ctx).Create(&place).Error; err != nil {
		return nil, fmt.Errorf("failed to create place: %w", err)
	}
	return &place, nil
}

// GetPlaceDevice returns the join row for (place, device), nil when absent.
func (s *gormStore) GetPlaceDevice(ctx context.Context, placeID int64, deviceID string) (*schema.PlaceDevice, error) {
	var pd schema.PlaceDevice
	err := s.db.WithContext(ctx).
		Where("place_id = ? AND device_id = ?", placeID, deviceID).
		First(&pd).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get place device: %w", err)
	}
	return &pd, nil
}

// LinkDeviceToPlace fetches or creates the (place, device) join row.
func (s *gormStore) LinkDeviceToPlace(ctx context.Context, placeID int64, deviceID string) (*schema.PlaceDevice, bool, error) {
	pd, err := s.GetPlaceDevice(ctx, placeID, deviceID)
	if err != nil {
		return nil, false, err
	}

	if pd != nil {
		pd.TimesSeen++
		err := s.db.WithContext(ctx).Model(&schema.PlaceDevice{}).
			Where("place_id = ? AND device_id = ?", placeID, deviceID).
			Update("times_seen", pd.TimesSeen).Error
		if err != nil {
			return nil, false, fmt.Errorf("failed to update place device: %w", err)
		}
		return pd, false, nil
	}

	pd = &schema.PlaceDevice{
		PlaceID:   placeID,
		DeviceID:  deviceID,
		TimesSeen: 1,
	}
	if err := s.db.WithContext(ctx).Create(pd).Error; err != nil {
		return nil, false, fmt.Errorf("failed to link device %s to place %d: %w", deviceID, placeID, err)
	}

	return pd, true, nil
}

// RecordRelocation appends the relocation audit row and moves the device's
// geodata forward. The relocation row must capture the prior geodata, so it
// is written before the device row is updated.
func (s *gormStore) RecordRelocation(ctx context.Context, device *schema.Device, newGeodata string, now time.Time) error {
	relocation := schema.Relocation{
		DeviceID:   device.ID,
		Timestamp:  now,
		OldGeodata: device.Geodata,
		NewGeodata: newGeodata,
	}
	if err := s.db.WithContext(ctx).Create(&relocation).Error; err != nil {
		return fmt.Errorf("failed to record relocation for %s: %w", device.ID, err)
	}

	device.Geodata = newGeodata
	err := s.db.WithContext(ctx).Model(&schema.Device{}).
		Where("id = ?", device.ID).
		Update("geodata", newGeodata).Error
	if err != nil {
		return fmt.Errorf("failed to update device geodata for %s: %w", device.ID, err)
	}

	return nil
}

// RecordSeen appends one row to the sighting log.
func (s *gormStore) RecordSeen(ctx context.Context, deviceID string, placeID int64, rssi int, fingerprint string, timestamp time.Time) error {
	seen := schema.Seen{
		DeviceID:    deviceID,
		PlaceID:     placeID,
		Timestamp:   timestamp,
		RSSI:        rssi,
		Fingerprint: fingerprint,
	}
	if err := s.db.WithContext(ctx).Create(&seen).Error; err != nil {
		return fmt.Errorf("failed to record sighting for %s: %w", deviceID, err)
	}
	return nil
}

// Recreate drops and recreates all ledger tables.
func (s *gormStore) Recreate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	err := db.Migrator().DropTable(
		&schema.Seen{},
		&schema.Relocation{},
		&schema.PlaceDevice{},
		&schema.Device{},
		&schema.Place{},
	)
	if err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to recreate tables: %w", err)
	}
	return nil
}
