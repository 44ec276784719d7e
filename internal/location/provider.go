package location

import (
	"context"
	"time"
)

// Provider yields latitude/longitude fixes. A provider returning ok=false with
// a nil error means "no fix available right now"; callers must degrade rather
// than fail the cycle.
type Provider interface {
	// CurrentFix returns the current position. The timeout bounds how long
	// the provider may block waiting for a fix.
	CurrentFix(ctx context.Context, timeout time.Duration) (lat, lon float64, ok bool, err error)
}

// Fixed is a Provider pinned to one coordinate, for stationary deployments
// and tests.
type Fixed struct {
	Latitude  float64
	Longitude float64
}

// NewFixed creates a provider that always reports the given coordinate.
func NewFixed(lat, lon float64) *Fixed {
	return &Fixed{Latitude: lat, Longitude: lon}
}

func (f *Fixed) CurrentFix(ctx context.Context, timeout time.Duration) (float64, float64, bool, error) {
	return f.Latitude, f.Longitude, true, nil
}
