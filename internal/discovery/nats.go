package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/swivel-scan/swivel/internal/logger"
)

// NATSSourceConfig holds the connection settings for a NATS sighting source.
type NATSSourceConfig struct {
	URL            string
	Subject        string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

// NATSSource is a Discoverer fed by an edge BLE agent publishing sightings to
// a NATS subject. Sightings accumulate between cycles; Discover drains the
// buffer collected since the previous cycle. A device published twice within
// one window keeps only its latest sighting, matching what a local radio scan
// would report.
type NATSSource struct {
	nc  *nats.Conn
	sub *nats.Subscription

	mu      sync.Mutex
	pending []Sighting
	closed  bool
}

// NewNATSSource connects to NATS and subscribes to the sighting subject.
func NewNATSSource(cfg NATSSourceConfig) (*NATSSource, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	src := &NATSSource{nc: nc}

	sub, err := nc.Subscribe(cfg.Subject, src.onSighting)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.Subject, err)
	}
	src.sub = sub

	return src, nil
}

func (s *NATSSource) onSighting(msg *nats.Msg) {
	var sighting Sighting
	if err := json.Unmarshal(msg.Data, &sighting); err != nil {
		logger.Warn("Dropping malformed sighting", zap.Error(err), zap.String("subject", msg.Subject))
		return
	}
	if sighting.Address == "" {
		logger.Warn("Dropping sighting without address", zap.String("subject", msg.Subject))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = append(s.pending, sighting)
}

// Discover drains the sightings buffered since the last call, deduplicated by
// address keeping the most recent.
func (s *NATSSource) Discover(ctx context.Context) ([]Sighting, error) {
	if s.nc.Status() == nats.CLOSED {
		return nil, fmt.Errorf("sighting source connection is closed")
	}

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	latest := make(map[string]int, len(pending))
	batch := make([]Sighting, 0, len(pending))
	for _, sighting := range pending {
		if i, seen := latest[sighting.Address]; seen {
			batch[i] = sighting
			continue
		}
		latest[sighting.Address] = len(batch)
		batch = append(batch, sighting)
	}

	return batch, nil
}

// Close unsubscribes and closes the NATS connection.
func (s *NATSSource) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	s.nc.Close()
}
