package schema

// PlaceDevice represents the place_devices join table - "device has been seen
// at place". Created at most once per (place, device) pair and never deleted
// by the pipeline, so a device accumulates one row per place it has ever been
// linked to.
type PlaceDevice struct {
	PlaceID  int64  `gorm:"column:place_id;primaryKey"`
	DeviceID string `gorm:"column:device_id;primaryKey;type:text"`
	// TimesSeen counts sightings of the device at this place; monotonically non-decreasing
	TimesSeen int64 `gorm:"column:times_seen;not null;default:1"`

	// Associations
	Place  *Place  `gorm:"foreignKey:PlaceID"`
	Device *Device `gorm:"foreignKey:DeviceID"`
}

// TableName specifies the table name for the PlaceDevice model
func (PlaceDevice) TableName() string {
	return "place_devices"
}
