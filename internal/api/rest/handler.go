package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swivel-scan/swivel/internal/geo"
	"github.com/swivel-scan/swivel/internal/scanner"
	"github.com/swivel-scan/swivel/internal/store"
	"github.com/swivel-scan/swivel/internal/wifi"
)

const stopTimeout = 30 * time.Second

// Handler defines the interface for REST API handlers
type Handler interface {
	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)

	// StartScanning transitions the scanner to the Scanning state
	// POST /api/v1/scanning/start
	StartScanning(c *gin.Context)

	// StopScanning transitions the scanner back to Idle, waiting for the
	// in-flight cycle to finish
	// POST /api/v1/scanning/stop
	StopScanning(c *gin.Context)

	// ScanningStatus reports the scanner state
	// GET /api/v1/scanning/status
	ScanningStatus(c *gin.Context)

	// GetLocation returns the current (possibly cached) geodata fix
	// GET /api/v1/location
	GetLocation(c *gin.Context)

	// MultiPlaceReport lists devices linked to more than one place
	// GET /api/v1/reports/multi-place
	MultiPlaceReport(c *gin.Context)

	// MultiPlaceFingerprintReport groups sightings by fingerprints seen at
	// more than one place
	// GET /api/v1/reports/multi-place-fingerprint
	MultiPlaceFingerprintReport(c *gin.Context)

	// WiFiNetworks inventories WiFi networks visible to the configured
	// interfaces
	// GET /api/v1/wifi/networks
	WiFiNetworks(c *gin.Context)

	// RecreateDatabase drops and recreates all tables
	// POST /api/v1/database/recreate
	RecreateDatabase(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store    store.Store
	scanner  *scanner.Scanner
	geoCache *geo.Cache
	wifi     *wifi.Scanner
}

// NewHandler creates a new REST API handler
func NewHandler(s store.Store, sc *scanner.Scanner, cache *geo.Cache, wf *wifi.Scanner) Handler {
	return &handler{
		store:    s,
		scanner:  sc,
		geoCache: cache,
		wifi:     wf,
	}
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StartScanning launches the scan loop. Starting an already running scanner
// is a no-op, not an error.
func (h *handler) StartScanning(c *gin.Context) {
	h.scanner.Start()
	c.JSON(http.StatusOK, gin.H{"scanning": h.scanner.IsRunning()})
}

// StopScanning stops the scan loop, waiting for the current cycle to complete.
func (h *handler) StopScanning(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), stopTimeout)
	defer cancel()

	if err := h.scanner.Stop(ctx); err != nil {
		respondInternalError(c, err, "Failed to stop scanner")
		return
	}
	c.JSON(http.StatusOK, gin.H{"scanning": h.scanner.IsRunning()})
}

// ScanningStatus reports the scanner state machine and its fault counter.
func (h *handler) ScanningStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scanning":                   h.scanner.IsRunning(),
		"consecutive_faulted_cycles": h.scanner.ConsecutiveFaultedCycles(),
	})
}

// GetLocation returns the current geodata fix, served from the cache when
// fresh.
func (h *handler) GetLocation(c *gin.Context) {
	fix, ok, err := h.geoCache.CurrentGeodata(c.Request.Context())
	if !ok {
		if err != nil {
			respondWithError(c, http.StatusServiceUnavailable, errCodeServiceUnavailable,
				"No location fix available", err.Error())
		} else {
			respondWithError(c, http.StatusServiceUnavailable, errCodeServiceUnavailable,
				"No location fix available")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"latitude":  fix.Latitude,
		"longitude": fix.Longitude,
		"geodata":   fix.String(),
		"degraded":  err != nil,
	})
}

// MultiPlaceReport lists devices linked to more than one place.
func (h *handler) MultiPlaceReport(c *gin.Context) {
	devices, err := h.store.MultiPlaceDevices(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to build multi-place report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// MultiPlaceFingerprintReport groups sightings by fingerprints observed at
// more than one place.
func (h *handler) MultiPlaceFingerprintReport(c *gin.Context) {
	groups, err := h.store.MultiPlaceFingerprintGroups(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to build fingerprint report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"fingerprints": groups})
}

// WiFiNetworks inventories WiFi networks on the configured interfaces.
func (h *handler) WiFiNetworks(c *gin.Context) {
	if h.wifi == nil {
		respondBadRequest(c, "No WiFi interfaces configured")
		return
	}

	inventory, err := h.wifi.Scan(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "WiFi scan failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"interfaces": inventory})
}

// RecreateDatabase drops and recreates all tables. Refused while the scanner
// is running so a cycle never writes into a half-dropped schema.
func (h *handler) RecreateDatabase(c *gin.Context) {
	if h.scanner.IsRunning() {
		respondWithError(c, http.StatusConflict, errCodeConflict,
			"Cannot recreate database while scanning")
		return
	}

	if err := h.store.Recreate(c.Request.Context()); err != nil {
		respondInternalError(c, err, "Failed to recreate database")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recreated": true})
}
