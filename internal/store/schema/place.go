package schema

// DefaultPlaceRadius is the radius in meters assigned to places created by the
// scan pipeline.
const DefaultPlaceRadius = 50.0

// Place represents the places table - a circular geographic region.
//
// Places are immutable once created: coordinates and radius are fixed, and the
// pipeline never merges, shrinks, or deletes them. Overlapping places are
// allowed; resolution order is ascending ID (creation order).
type Place struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Name is optional; places created by the pipeline are anonymous
	Name      string  `gorm:"column:name;type:text"`
	Latitude  float64 `gorm:"column:latitude;not null"`
	Longitude float64 `gorm:"column:longitude;not null"`
	// Radius is the place boundary in meters
	Radius float64 `gorm:"column:radius;not null;default:50.0"`

	// Associations
	Devices     []PlaceDevice `gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE"`
	SeenRecords []Seen        `gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Place model
func (Place) TableName() string {
	return "places"
}
