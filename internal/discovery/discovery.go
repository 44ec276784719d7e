package discovery

import (
	"context"
)

// Sighting is one raw observation of a BLE peripheral within a scan window.
type Sighting struct {
	// Address is the advertised hardware address
	Address string `json:"address"`
	// Name is the advertised local name, may be empty
	Name string `json:"name"`
	// RSSI is the received signal strength in dBm
	RSSI int `json:"rssi"`
	// ServiceUUIDs are the advertised service identifiers in the order the
	// radio stack reported them
	ServiceUUIDs []string `json:"service_uuids"`
}

// Discoverer yields one batch of sightings per scan cycle. Discover may block
// for the duration of a radio scan window and must be driven to completion
// before the cycle proceeds.
type Discoverer interface {
	Discover(ctx context.Context) ([]Sighting, error)
}

// Static is a Discoverer that returns a fixed batch on every call, for demos
// and tests.
type Static struct {
	Sightings []Sighting
}

func (s *Static) Discover(ctx context.Context) ([]Sighting, error) {
	out := make([]Sighting, len(s.Sightings))
	copy(out, s.Sightings)
	return out, nil
}
