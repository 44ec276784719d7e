package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swivel-scan/swivel/internal/adapter"
	"github.com/swivel-scan/swivel/internal/discovery"
	"github.com/swivel-scan/swivel/internal/events"
	"github.com/swivel-scan/swivel/internal/geo"
	"github.com/swivel-scan/swivel/internal/logger"
	"github.com/swivel-scan/swivel/internal/store"
	"github.com/swivel-scan/swivel/internal/store/schema"
)

// Pipeline runs the per-cycle presence correlation: resolve geodata, classify
// each sighted device as new / same-place / relocated, update the ledger, and
// append to the sighting log. Sightings are processed strictly sequentially so
// a place created for one sighting is visible to the rest of the batch.
type Pipeline struct {
	store       store.Store
	geoCache    *geo.Cache
	publisher   events.Publisher
	clock       adapter.Clock
	placeRadius float64
}

// NewPipeline creates a correlation pipeline. A zero placeRadius uses the
// default 50 m.
func NewPipeline(s store.Store, cache *geo.Cache, publisher events.Publisher, clock adapter.Clock, placeRadius float64) *Pipeline {
	if placeRadius == 0 {
		placeRadius = schema.DefaultPlaceRadius
	}
	return &Pipeline{
		store:       s,
		geoCache:    cache,
		publisher:   publisher,
		clock:       clock,
		placeRadius: placeRadius,
	}
}

// CycleStats aggregates one cycle's outcomes for logging and the summary
// event.
type CycleStats struct {
	Discovered  int
	NewDevices  int
	SamePlace   int
	Relocated   int
	Relocations int
	Faulted     int
}

type outcome int

const (
	outcomeNew outcome = iota
	outcomeSamePlace
	outcomeRelocated
)

// Fingerprint derives the identity-correlation key from the advertised
// service UUIDs: an order-preserving comma join. The list is deliberately not
// sorted, matching the stored history; a radio stack that reorders its
// advertisements between scans will not correlate.
func Fingerprint(serviceUUIDs []string) string {
	return strings.Join(serviceUUIDs, ",")
}

// RunCycle processes one batch of sightings against the current fix. A
// failure in one sighting rolls back that sighting only and the batch
// continues. The returned stats are logged and published as the cycle
// summary.
func (p *Pipeline) RunCycle(ctx context.Context, batch []discovery.Sighting) (CycleStats, error) {
	cycleID := uuid.NewString()
	stats := CycleStats{Discovered: len(batch)}

	fix, ok, err := p.geoCache.CurrentGeodata(ctx)
	if !ok {
		if err != nil {
			// Provider failure with no prior fix: the cycle is faulted, not
			// merely skipped.
			return stats, fmt.Errorf("no location fix: %w", err)
		}
		logger.Warn("No location fix available, skipping cycle",
			zap.String("cycle_id", cycleID),
			zap.Int("discovered", len(batch)),
		)
		return stats, nil
	}
	if err != nil {
		logger.Warn("Degraded geodata for cycle", zap.String("cycle_id", cycleID), zap.Error(err))
	}

	for _, sighting := range batch {
		result, reloc, err := p.processSighting(ctx, sighting, fix)
		if err != nil {
			stats.Faulted++
			logger.Error(fmt.Errorf("failed to process sighting: %w", err),
				zap.String("cycle_id", cycleID),
				zap.String("address", sighting.Address),
			)
			continue
		}

		switch result {
		case outcomeNew:
			stats.NewDevices++
		case outcomeSamePlace:
			stats.SamePlace++
		case outcomeRelocated:
			stats.Relocated++
			stats.Relocations++
		}
		if reloc != nil {
			p.publisher.PublishDeviceRelocated(*reloc)
		}
	}

	now := p.clock.Now().UTC()
	logger.Info("Scan cycle complete",
		zap.String("cycle_id", cycleID),
		zap.Int("discovered", stats.Discovered),
		zap.Int("new_devices", stats.NewDevices),
		zap.Int("same_place", stats.SamePlace),
		zap.Int("relocated", stats.Relocated),
		zap.Int("relocations", stats.Relocations),
		zap.Int("faulted", stats.Faulted),
	)
	p.publisher.PublishCycleSummary(events.CycleSummary{
		CycleID:     cycleID,
		Timestamp:   now,
		Discovered:  stats.Discovered,
		NewDevices:  stats.NewDevices,
		SamePlace:   stats.SamePlace,
		Relocated:   stats.Relocated,
		Relocations: stats.Relocations,
		Faulted:     stats.Faulted,
	})

	return stats, nil
}

// processSighting applies the classification branches for one sighting inside
// a single transaction, so a failure anywhere rolls the whole sighting back.
func (p *Pipeline) processSighting(ctx context.Context, sighting discovery.Sighting, fix geo.GeoData) (outcome, *events.DeviceRelocated, error) {
	name := sighting.Name
	if name == "" {
		name = "Unknown"
	}
	fingerprint := Fingerprint(sighting.ServiceUUIDs)
	now := p.clock.Now().UTC()

	var result outcome
	var reloc *events.DeviceRelocated

	err := p.store.Transaction(ctx, func(tx store.Store) error {
		device, isNew, err := tx.UpsertDevice(ctx, sighting.Address, name, fix.String(), now)
		if err != nil {
			return err
		}

		place, err := FindPlace(ctx, tx, fix)
		if err != nil {
			return err
		}

		relocated := false
		if place == nil {
			// No place covers the fix; a previously known device arriving
			// here has necessarily moved.
			relocated = !isNew
			place, err = tx.CreatePlace(ctx, fix.Latitude, fix.Longitude, p.placeRadius)
			if err != nil {
				return err
			}
			logger.Info("Created new place",
				zap.Int64("place_id", place.ID),
				zap.Float64("latitude", place.Latitude),
				zap.Float64("longitude", place.Longitude),
				zap.Float64("radius", place.Radius),
			)
		} else if !isNew {
			pd, err := tx.GetPlaceDevice(ctx, place.ID, device.ID)
			if err != nil {
				return err
			}
			relocated = pd == nil
		}

		if relocated {
			oldGeodata := device.Geodata
			if err := tx.RecordRelocation(ctx, device, fix.String(), now); err != nil {
				return err
			}
			reloc = &events.DeviceRelocated{
				DeviceID:   device.ID,
				OldGeodata: oldGeodata,
				NewGeodata: fix.String(),
				Timestamp:  now,
			}
		}

		if _, _, err := tx.LinkDeviceToPlace(ctx, place.ID, device.ID); err != nil {
			return err
		}

		// The sighting log is the ground truth; a failure here aborts the
		// whole unit of work rather than being swallowed.
		if err := tx.RecordSeen(ctx, device.ID, place.ID, sighting.RSSI, fingerprint, now); err != nil {
			return err
		}

		switch {
		case isNew:
			result = outcomeNew
		case relocated:
			result = outcomeRelocated
		default:
			result = outcomeSamePlace
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return result, reloc, nil
}
