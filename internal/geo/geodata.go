package geo

import (
	"fmt"
	"math"
)

// earthRadiusMeters is the mean earth radius used for great-circle distance.
const earthRadiusMeters = 6371008.8

// GeoData is one latitude/longitude fix. It is transient: the pipeline embeds
// its formatted form into device and relocation rows rather than persisting it
// as its own entity.
type GeoData struct {
	Latitude  float64
	Longitude float64
}

// String formats the fix the way it is stored on devices and relocations.
func (g GeoData) String() string {
	return fmt.Sprintf("%v, %v", g.Latitude, g.Longitude)
}

// Distance returns the great-circle distance in meters between two fixes,
// computed with the haversine formula.
func Distance(a, b GeoData) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
