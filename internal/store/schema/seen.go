package schema

import (
	"time"
)

// Seen represents the seen table - the append-only sighting log. One row per
// device per scan cycle; rows are never updated or deleted. This log is the
// ground truth for reporting and for fingerprint-based identity correlation.
type Seen struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	DeviceID string `gorm:"column:device_id;not null;type:text;index:idx_seen_device"`
	PlaceID  int64  `gorm:"column:place_id;not null"`
	// Timestamp is the time of the scan cycle that produced this sighting
	Timestamp time.Time `gorm:"column:timestamp;not null"`
	// RSSI is the received signal strength in dBm at the time of the sighting
	RSSI int `gorm:"column:rssi"`
	// Fingerprint is the order-preserving comma join of the advertised service
	// UUIDs, used to correlate sightings across hardware-address randomization.
	// Empty when the device advertised no services. Indexed for the
	// fingerprint correlation report.
	Fingerprint string `gorm:"column:fingerprint;type:text;index:idx_seen_fingerprint"`

	// Associations
	Device *Device `gorm:"foreignKey:DeviceID"`
	Place  *Place  `gorm:"foreignKey:PlaceID"`
}

// TableName specifies the table name for the Seen model
func (Seen) TableName() string {
	return "seen"
}
