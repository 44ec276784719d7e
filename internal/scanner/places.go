package scanner

import (
	"context"

	"github.com/swivel-scan/swivel/internal/geo"
	"github.com/swivel-scan/swivel/internal/store"
	"github.com/swivel-scan/swivel/internal/store/schema"
)

// FindPlace returns the first place whose great-circle distance to the fix is
// within that place's radius, enumerating places in ascending ID order. This
// is a first-match policy, not nearest-match: when radii overlap, the oldest
// matching place wins, and the result is stable across calls as long as the
// place set is unchanged. Returns nil when no place covers the fix.
func FindPlace(ctx context.Context, s store.Store, fix geo.GeoData) (*schema.Place, error) {
	places, err := s.ListPlaces(ctx)
	if err != nil {
		return nil, err
	}

	for i := range places {
		place := &places[i]
		center := geo.GeoData{Latitude: place.Latitude, Longitude: place.Longitude}
		if geo.Distance(fix, center) <= place.Radius {
			return place, nil
		}
	}

	return nil, nil
}
