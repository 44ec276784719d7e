package schema

import (
	"time"
)

// Relocation represents the relocations table - the append-only audit log of
// device place transitions. One row per detected relocation event; rows are
// never updated or deleted.
type Relocation struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DeviceID  string    `gorm:"column:device_id;not null;type:text;index:idx_relocations_device"`
	Timestamp time.Time `gorm:"column:timestamp;not null"`
	// OldGeodata is the device's geodata string before the relocation
	OldGeodata string `gorm:"column:old_geodata;type:text"`
	// NewGeodata is the fix the device relocated to, "lat, lon" formatted
	NewGeodata string `gorm:"column:new_geodata;type:text"`

	// Associations
	Device *Device `gorm:"foreignKey:DeviceID"`
}

// TableName specifies the table name for the Relocation model
func (Relocation) TableName() string {
	return "relocations"
}
