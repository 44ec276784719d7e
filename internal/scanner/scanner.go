package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/swivel-scan/swivel/internal/adapter"
	"github.com/swivel-scan/swivel/internal/discovery"
	"github.com/swivel-scan/swivel/internal/events"
	"github.com/swivel-scan/swivel/internal/logger"
)

// DefaultScanPeriod is the pause between scan cycles.
const DefaultScanPeriod = 5 * time.Second

// Scanner is the scan scheduler: an Idle/Scanning state machine driving the
// correlation pipeline on a fixed period. Faults inside a cycle are contained
// at the cycle boundary; a discovery-provider fault is fatal to the loop and
// transitions the scanner back to idle with a fault event.
type Scanner struct {
	pipeline   *Pipeline
	discoverer discovery.Discoverer
	publisher  events.Publisher
	clock      adapter.Clock
	period     time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	consecutiveFaults atomic.Int64
}

// New creates a scanner. A zero period uses DefaultScanPeriod.
func New(pipeline *Pipeline, discoverer discovery.Discoverer, publisher events.Publisher, clock adapter.Clock, period time.Duration) *Scanner {
	if period == 0 {
		period = DefaultScanPeriod
	}
	return &Scanner{
		pipeline:   pipeline,
		discoverer: discoverer,
		publisher:  publisher,
		clock:      clock,
		period:     period,
	}
}

// Start transitions Idle -> Scanning and launches the periodic scan loop.
// No-op when already scanning.
func (s *Scanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)

	logger.Info("Scanner started", zap.Duration("period", s.period))
}

// Stop signals cancellation and waits for the loop to finish its current
// cycle. Cancellation is cooperative: the loop checks at cycle boundaries, so
// the ledger is never left mid-sighting. No-op when idle.
func (s *Scanner) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
		logger.Info("Scanner stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for scan loop to stop: %w", ctx.Err())
	}
}

// IsRunning reports whether the scanner is in the Scanning state. Safe to
// call concurrently with Start and Stop.
func (s *Scanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ConsecutiveFaultedCycles returns how many cycles in a row have faulted, so
// an operator can tell the loop is degraded even though it keeps running.
func (s *Scanner) ConsecutiveFaultedCycles() int64 {
	return s.consecutiveFaults.Load()
}

func (s *Scanner) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := s.discoverer.Discover(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// The discovery provider itself is broken; there is nothing to
			// retry against. Surface the fault and go idle.
			logger.Error(fmt.Errorf("discovery provider failed, stopping scan loop: %w", err))
			s.publisher.PublishScannerFault(events.ScannerFault{
				Timestamp: s.clock.Now().UTC(),
				Error:     err.Error(),
			})
			return
		}

		if _, err := s.runCycle(ctx, batch); err != nil {
			s.consecutiveFaults.Add(1)
			logger.Error(fmt.Errorf("scan cycle failed: %w", err),
				zap.Int64("consecutive_faults", s.consecutiveFaults.Load()),
			)
		} else {
			s.consecutiveFaults.Store(0)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.period):
		}
	}
}

// runCycle contains a panicking pipeline at the cycle boundary so one bad
// cycle cannot kill the loop.
func (s *Scanner) runCycle(ctx context.Context, batch []discovery.Sighting) (stats CycleStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in scan cycle: %v", r)
		}
	}()
	return s.pipeline.RunCycle(ctx, batch)
}
