package schema

import (
	"time"
)

// Device represents the devices table - one row per observed hardware address.
//
// The primary key is the advertised hardware address. Addresses are not
// guaranteed stable across BLE privacy randomization; re-identification across
// address churn is done through the Seen.Fingerprint column, not this table.
type Device struct {
	// ID is the observed hardware address (e.g., "AA:BB:CC:DD:EE:FF")
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Name is the advertised local name, empty when the device does not advertise one
	Name string `gorm:"column:name;type:text"`
	// Geodata is the formatted "lat, lon" string of the most recent fix the device was placed at
	Geodata string `gorm:"column:geodata;type:text"`
	// TimesSeen counts the scan cycles in which this device was observed; monotonically non-decreasing
	TimesSeen int64 `gorm:"column:times_seen;not null;default:0"`
	// FirstSeen is the timestamp of the cycle that created this row
	FirstSeen time.Time `gorm:"column:first_seen;not null"`
	// LastSeen is the timestamp of the most recent cycle that observed this device
	LastSeen time.Time `gorm:"column:last_seen;not null"`

	// Associations
	Places      []PlaceDevice `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE"`
	SeenRecords []Seen        `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE"`
	Relocations []Relocation  `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Device model
func (Device) TableName() string {
	return "devices"
}
