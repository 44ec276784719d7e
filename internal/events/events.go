package events

import (
	"time"
)

// Subjects the scanner publishes on.
const (
	SubjectScannerFault    = "swivel.scanner.fault"
	SubjectDeviceRelocated = "swivel.device.relocated"
	SubjectCycleSummary    = "swivel.cycle.summary"
)

// ScannerFault is emitted when the scan loop dies on a discovery-provider
// fault and transitions back to idle.
type ScannerFault struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

// DeviceRelocated is emitted for every relocation the pipeline records.
type DeviceRelocated struct {
	DeviceID   string    `json:"device_id"`
	OldGeodata string    `json:"old_geodata"`
	NewGeodata string    `json:"new_geodata"`
	Timestamp  time.Time `json:"timestamp"`
}

// CycleSummary is the per-cycle observability record.
type CycleSummary struct {
	CycleID     string    `json:"cycle_id"`
	Timestamp   time.Time `json:"timestamp"`
	Discovered  int       `json:"discovered"`
	NewDevices  int       `json:"new_devices"`
	SamePlace   int       `json:"same_place"`
	Relocated   int       `json:"relocated"`
	Relocations int       `json:"relocations"`
	Faulted     int       `json:"faulted"`
}

// Publisher broadcasts scanner events to observers. Implementations must not
// block the scan loop.
type Publisher interface {
	PublishScannerFault(fault ScannerFault)
	PublishDeviceRelocated(event DeviceRelocated)
	PublishCycleSummary(summary CycleSummary)
	Close()
}

// Nop is a Publisher that discards everything, used when no broker is
// configured.
type Nop struct{}

func (Nop) PublishScannerFault(ScannerFault)       {}
func (Nop) PublishDeviceRelocated(DeviceRelocated) {}
func (Nop) PublishCycleSummary(CycleSummary)       {}
func (Nop) Close()                                 {}
