package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeoDataString(t *testing.T) {
	tests := []struct {
		name     string
		geodata  GeoData
		expected string
	}{
		{
			name:     "zero value",
			geodata:  GeoData{},
			expected: "0, 0",
		},
		{
			name:     "full precision",
			geodata:  GeoData{Latitude: 37.7749, Longitude: -122.4194},
			expected: "37.7749, -122.4194",
		},
		{
			name:     "negative latitude",
			geodata:  GeoData{Latitude: -33.8688, Longitude: 151.2093},
			expected: "-33.8688, 151.2093",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.geodata.String())
		})
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		a         GeoData
		b         GeoData
		expected  float64 // meters
		tolerance float64
	}{
		{
			name:      "same point",
			a:         GeoData{Latitude: 37.7749, Longitude: -122.4194},
			b:         GeoData{Latitude: 37.7749, Longitude: -122.4194},
			expected:  0,
			tolerance: 0.001,
		},
		{
			name:      "one degree of latitude",
			a:         GeoData{Latitude: 0, Longitude: 0},
			b:         GeoData{Latitude: 1, Longitude: 0},
			expected:  111195, // ~111.2 km
			tolerance: 100,
		},
		{
			name:      "short hop",
			a:         GeoData{Latitude: 37.7749, Longitude: -122.4194},
			b:         GeoData{Latitude: 37.7753, Longitude: -122.4194},
			expected:  44.5,
			tolerance: 1,
		},
		{
			name:      "paris to london",
			a:         GeoData{Latitude: 48.8566, Longitude: 2.3522},
			b:         GeoData{Latitude: 51.5074, Longitude: -0.1278},
			expected:  343900,
			tolerance: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Distance(tt.a, tt.b), tt.tolerance)
			// Distance is symmetric
			assert.InDelta(t, tt.expected, Distance(tt.b, tt.a), tt.tolerance)
		})
	}
}
