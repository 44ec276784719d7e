package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/swivel-scan/swivel/internal/adapter"
	"github.com/swivel-scan/swivel/internal/api/server"
	"github.com/swivel-scan/swivel/internal/config"
	"github.com/swivel-scan/swivel/internal/discovery"
	"github.com/swivel-scan/swivel/internal/events"
	"github.com/swivel-scan/swivel/internal/geo"
	"github.com/swivel-scan/swivel/internal/location"
	"github.com/swivel-scan/swivel/internal/logger"
	"github.com/swivel-scan/swivel/internal/scanner"
	"github.com/swivel-scan/swivel/internal/store"
	"github.com/swivel-scan/swivel/internal/wifi"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadScannerdConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "scannerd",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting Swivel scanner daemon")

	// Connect to the ledger database
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN(), 30*time.Second)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	if err := store.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	dataStore := store.NewGormStore(db)
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	clock := adapter.NewClock()

	// Location provider and geodata cache
	var provider location.Provider
	switch cfg.Location.Provider {
	case "fixed":
		provider = location.NewFixed(cfg.Location.Latitude, cfg.Location.Longitude)
		logger.Info("Using fixed location provider",
			zap.Float64("latitude", cfg.Location.Latitude),
			zap.Float64("longitude", cfg.Location.Longitude),
		)
	default:
		provider = location.NewGPSD(cfg.Location.GPSDAddr)
		logger.Info("Using gpsd location provider", zap.String("addr", cfg.Location.GPSDAddr))
	}
	geoCache := geo.NewCache(provider, clock, cfg.Scanner.GeoCacheTTL, cfg.Scanner.FixTimeout)

	// Event publisher
	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		publisher, err = events.NewNATSPublisher(events.NATSConfig{
			URL:            cfg.NATS.URL,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		})
		if err != nil {
			logger.Fatal("Failed to connect event publisher", zap.Error(err))
		}
		logger.Info("Publishing scanner events to NATS", zap.String("url", cfg.NATS.URL))
	} else {
		logger.Warn("No NATS URL configured, scanner events will not be published")
	}
	defer publisher.Close()

	// Sighting source
	var discoverer discovery.Discoverer = &discovery.Static{}
	if cfg.NATS.URL != "" {
		src, err := discovery.NewNATSSource(discovery.NATSSourceConfig{
			URL:            cfg.NATS.URL,
			Subject:        cfg.NATS.SightingSubject,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName + "-sightings",
		})
		if err != nil {
			logger.Fatal("Failed to connect sighting source", zap.Error(err))
		}
		defer src.Close()
		discoverer = src
		logger.Info("Consuming sightings from NATS", zap.String("subject", cfg.NATS.SightingSubject))
	} else {
		logger.Warn("No NATS URL configured, scan cycles will see no sightings")
	}

	// Correlation pipeline and scan scheduler
	pipeline := scanner.NewPipeline(dataStore, geoCache, publisher, clock, cfg.Scanner.PlaceRadius)
	sc := scanner.New(pipeline, discoverer, publisher, clock, cfg.Scanner.Period)
	if cfg.Scanner.AutoStart {
		sc.Start()
	}

	// WiFi inventory
	var wifiScanner *wifi.Scanner
	if len(cfg.WiFi.Interfaces) > 0 {
		wifiScanner = wifi.NewScanner(cfg.WiFi.Interfaces)
	}

	// Create and start API server
	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		APIKeys:      cfg.Auth.APIKeys,
	}, dataStore, sc, geoCache, wifiScanner)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error(err, zap.String("component", "server"))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the scan loop first so no cycle writes during teardown
	if err := sc.Stop(shutdownCtx); err != nil {
		logger.Error(err, zap.String("component", "scanner"))
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Scanner daemon stopped")
}
