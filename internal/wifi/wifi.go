package wifi

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/swivel-scan/swivel/internal/logger"
)

// Network is one WiFi network observed during an interface scan.
type Network struct {
	SSID      string  `json:"ssid"`
	BSSID     string  `json:"bssid"`
	Frequency int     `json:"frequency_mhz"`
	Channel   int     `json:"channel"`
	SignalDBm float64 `json:"signal_dbm"`
	Security  string  `json:"security"`
}

// Interface is one wireless interface and the networks visible to it.
type Interface struct {
	Name     string    `json:"name"`
	Networks []Network `json:"networks"`
}

// CommandRunner abstracts command execution so parsing can be tested without
// a radio.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Scanner inventories WiFi networks by shelling out to `iw`. It is
// structurally unrelated to the BLE pipeline and shares nothing with it but
// the API server.
type Scanner struct {
	runner     CommandRunner
	interfaces []string
}

// NewScanner creates a WiFi scanner over the given interfaces.
func NewScanner(interfaces []string) *Scanner {
	return &Scanner{runner: execRunner{}, interfaces: interfaces}
}

// NewScannerWithRunner creates a scanner with a custom command runner, for
// tests.
func NewScannerWithRunner(runner CommandRunner, interfaces []string) *Scanner {
	return &Scanner{runner: runner, interfaces: interfaces}
}

// Scan runs `iw dev <iface> scan` per configured interface. An interface that
// fails to scan is logged and skipped rather than failing the inventory.
func (s *Scanner) Scan(ctx context.Context) ([]Interface, error) {
	if len(s.interfaces) == 0 {
		return nil, fmt.Errorf("no wifi interfaces configured")
	}

	inventory := make([]Interface, 0, len(s.interfaces))
	for _, name := range s.interfaces {
		out, err := s.runner.Output(ctx, "iw", "dev", name, "scan")
		if err != nil {
			logger.Warn("WiFi scan failed for interface", zap.String("interface", name), zap.Error(err))
			continue
		}
		inventory = append(inventory, Interface{
			Name:     name,
			Networks: ParseScanOutput(string(out)),
		})
	}

	return inventory, nil
}

// ParseScanOutput parses `iw dev <iface> scan` output into networks. One
// network per "BSS" block.
func ParseScanOutput(output string) []Network {
	var networks []Network
	var current *Network

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(line, "BSS ") {
			if current != nil {
				networks = append(networks, *current)
			}
			bssid := strings.TrimPrefix(line, "BSS ")
			if i := strings.IndexAny(bssid, "( \t"); i >= 0 {
				bssid = bssid[:i]
			}
			current = &Network{BSSID: bssid, Security: "Open"}
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "SSID: "):
			current.SSID = strings.TrimPrefix(trimmed, "SSID: ")
		case strings.HasPrefix(trimmed, "freq: "):
			raw := strings.TrimPrefix(trimmed, "freq: ")
			// Newer iw prints fractional frequencies ("2437.0")
			if i := strings.Index(raw, "."); i >= 0 {
				raw = raw[:i]
			}
			if freq, err := strconv.Atoi(raw); err == nil {
				current.Frequency = freq
				current.Channel = channelForFrequency(freq)
			}
		case strings.HasPrefix(trimmed, "signal: "):
			fields := strings.Fields(strings.TrimPrefix(trimmed, "signal: "))
			if len(fields) > 0 {
				if signal, err := strconv.ParseFloat(fields[0], 64); err == nil {
					current.SignalDBm = signal
				}
			}
		case strings.HasPrefix(trimmed, "RSN:"):
			current.Security = "WPA2/WPA3"
		case strings.HasPrefix(trimmed, "WPA:"):
			if current.Security == "Open" {
				current.Security = "WPA"
			}
		}
	}

	if current != nil {
		networks = append(networks, *current)
	}

	return networks
}

// channelForFrequency maps a center frequency in MHz to its channel number.
func channelForFrequency(freq int) int {
	switch {
	case freq == 2484:
		return 14
	case freq >= 2412 && freq < 2484:
		return (freq - 2407) / 5
	case freq >= 5000 && freq < 5925:
		return (freq - 5000) / 5
	case freq >= 5925:
		// 6 GHz band
		return (freq - 5950) / 5
	default:
		return 0
	}
}
