package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/swivel-scan/swivel/internal/store/schema"
)

// PlaceRef identifies a place in a report.
type PlaceRef struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MultiPlaceDevice is one entry of the multi-place report: a device linked to
// more than one place, with every place it has ever been linked to.
type MultiPlaceDevice struct {
	DeviceID   string     `json:"device_id"`
	DeviceName string     `json:"device_name"`
	Places     []PlaceRef `json:"places"`
}

// FingerprintSighting is one sighting inside a fingerprint group.
type FingerprintSighting struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	Place      PlaceRef  `json:"place"`
	Timestamp  time.Time `json:"timestamp"`
}

// FingerprintGroup collects all sightings sharing one service fingerprint
// that spans more than one place. Different hardware addresses inside one
// group are likely the same physical device behind address randomization.
type FingerprintGroup struct {
	Fingerprint string                `json:"fingerprint"`
	Entries     []FingerprintSighting `json:"entries"`
}

func placeRef(p *schema.Place) PlaceRef {
	if p == nil {
		return PlaceRef{}
	}
	return PlaceRef{
		ID:        p.ID,
		Name:      p.Name,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}

// MultiPlaceDevices reports devices with more than one place_devices row,
// ordered by device ID. The query runs in its own transaction so an
// in-progress scan cycle cannot produce a torn report.
func (s *gormStore) MultiPlaceDevices(ctx context.Context) ([]MultiPlaceDevice, error) {
	var report []MultiPlaceDevice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&schema.PlaceDevice{}).
			Select("device_id").
			Group("device_id").
			Having("COUNT(place_id) > 1")

		var devices []schema.Device
		err := tx.Where("id IN (?)", sub).
			Order("id ASC").
			Preload("Places", func(db *gorm.DB) *gorm.DB {
				return db.Order("place_devices.place_id ASC")
			}).
			Preload("Places.Place").
			Find(&devices).Error
		if err != nil {
			return err
		}

		report = make([]MultiPlaceDevice, 0, len(devices))
		for _, device := range devices {
			entry := MultiPlaceDevice{
				DeviceID:   device.ID,
				DeviceName: device.Name,
				Places:     make([]PlaceRef, 0, len(device.Places)),
			}
			for _, pd := range device.Places {
				entry.Places = append(entry.Places, placeRef(pd.Place))
			}
			report = append(report, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build multi-place report: %w", err)
	}

	return report, nil
}

// MultiPlaceFingerprintGroups reports every sighting whose fingerprint was
// seen at more than one distinct place, grouped by fingerprint. Empty
// fingerprints are excluded. Rows are ordered by (fingerprint, timestamp, id)
// so grouping is invariant under the insertion order of the underlying log.
func (s *gormStore) MultiPlaceFingerprintGroups(ctx context.Context) ([]FingerprintGroup, error) {
	var groups []FingerprintGroup

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&schema.Seen{}).
			Select("fingerprint").
			Where("fingerprint <> ''").
			Group("fingerprint").
			Having("COUNT(DISTINCT place_id) > 1")

		var sightings []schema.Seen
		err := tx.Where("fingerprint IN (?)", sub).
			Preload("Device").
			Preload("Place").
			Order("fingerprint ASC, timestamp ASC, id ASC").
			Find(&sightings).Error
		if err != nil {
			return err
		}

		groups = nil
		for _, seen := range sightings {
			entry := FingerprintSighting{
				DeviceID:  seen.DeviceID,
				Place:     placeRef(seen.Place),
				Timestamp: seen.Timestamp,
			}
			if seen.Device != nil {
				entry.DeviceName = seen.Device.Name
			}

			if len(groups) == 0 || groups[len(groups)-1].Fingerprint != seen.Fingerprint {
				groups = append(groups, FingerprintGroup{Fingerprint: seen.Fingerprint})
			}
			last := &groups[len(groups)-1]
			last.Entries = append(last.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build fingerprint report: %w", err)
	}

	return groups, nil
}
