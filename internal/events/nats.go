package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/swivel-scan/swivel/internal/logger"
)

// NATSConfig holds the connection settings for the event publisher.
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

// natsPublisher publishes scanner events to core NATS subjects. Publishing is
// offloaded to a single-worker pool so a slow broker never stalls the scan
// loop; the single worker keeps event order intact.
type natsPublisher struct {
	nc   *nats.Conn
	pool pond.Pool
}

// NewNATSPublisher connects to NATS and returns an asynchronous publisher.
func NewNATSPublisher(cfg NATSConfig) (Publisher, error) {
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
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &natsPublisher{
		nc:   nc,
		pool: pond.NewPool(1, pond.WithQueueSize(256), pond.WithNonBlocking(true)),
	}, nil
}

func (p *natsPublisher) publish(subject string, event any) {
	p.pool.Submit(func() {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Error(fmt.Errorf("failed to marshal event: %w", err), zap.String("subject", subject))
			return
		}
		if err := p.nc.Publish(subject, data); err != nil {
			logger.Error(fmt.Errorf("failed to publish event: %w", err), zap.String("subject", subject))
		}
	})
}

func (p *natsPublisher) PublishScannerFault(fault ScannerFault) {
	p.publish(SubjectScannerFault, fault)
}

func (p *natsPublisher) PublishDeviceRelocated(event DeviceRelocated) {
	p.publish(SubjectDeviceRelocated, event)
}

func (p *natsPublisher) PublishCycleSummary(summary CycleSummary) {
	p.publish(SubjectCycleSummary, summary)
}

// Close drains pending publishes and closes the connection.
func (p *natsPublisher) Close() {
	p.pool.StopAndWait()
	if err := p.nc.Drain(); err != nil {
		logger.Error(fmt.Errorf("failed to drain NATS connection: %w", err))
	}
}
