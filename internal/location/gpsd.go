package location

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// GPSD is a Provider backed by a gpsd daemon speaking its JSON protocol over
// TCP. Each CurrentFix call opens a fresh connection, enables watch mode, and
// waits for the first TPV report carrying a 2D or better fix. The geo cache in
// front of this provider keeps the connection rate to at most one per minute.
type GPSD struct {
	// Addr is the gpsd endpoint, e.g. "localhost:2947"
	Addr string
}

// NewGPSD creates a gpsd-backed location provider.
func NewGPSD(addr string) *GPSD {
	return &GPSD{Addr: addr}
}

// tpvReport is the subset of gpsd's TPV class we care about.
type tpvReport struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// CurrentFix returns the first position gpsd reports within the timeout.
// A timeout waiting for a usable TPV report is "no fix", not an error.
func (g *GPSD) CurrentFix(ctx context.Context, timeout time.Duration) (float64, float64, bool, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", g.Addr)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to connect to gpsd at %s: %w", g.Addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return 0, 0, false, fmt.Errorf("failed to set gpsd deadline: %w", err)
	}

	if _, err := fmt.Fprint(conn, `?WATCH={"enable":true,"json":true}`+"\n"); err != nil {
		return 0, 0, false, fmt.Errorf("failed to enable gpsd watch mode: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var report tpvReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			// gpsd emits VERSION/DEVICES/SKY lines we don't model; skip
			// anything that doesn't parse as a TPV report.
			continue
		}
		if report.Class != "TPV" {
			continue
		}
		// Mode 2 is a 2D fix, mode 3 a 3D fix. 0/1 mean no fix yet.
		if report.Mode < 2 {
			continue
		}
		return report.Lat, report.Lon, true, nil
	}

	if err := scanner.Err(); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("failed to read from gpsd: %w", err)
	}

	return 0, 0, false, nil
}
