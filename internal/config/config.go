package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // "sqlite" or "postgres"
	Path     string `mapstructure:"path"`   // sqlite database file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// ScannerConfig holds scan loop configuration
type ScannerConfig struct {
	Period      time.Duration `mapstructure:"period"`
	PlaceRadius float64       `mapstructure:"place_radius"` // meters
	GeoCacheTTL time.Duration `mapstructure:"geo_cache_ttl"`
	FixTimeout  time.Duration `mapstructure:"fix_timeout"`
	AutoStart   bool          `mapstructure:"auto_start"`
}

// LocationConfig holds location provider configuration
type LocationConfig struct {
	Provider  string  `mapstructure:"provider"` // "gpsd" or "fixed"
	GPSDAddr  string  `mapstructure:"gpsd_addr"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL             string        `mapstructure:"url"`
	SightingSubject string        `mapstructure:"sighting_subject"`
	MaxReconnects   int           `mapstructure:"max_reconnects"`
	ReconnectWait   time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName  string        `mapstructure:"connection_name"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// WiFiConfig holds WiFi inventory configuration
type WiFiConfig struct {
	Interfaces []string `mapstructure:"interfaces"`
}

// ScannerdConfig holds configuration for scannerd
type ScannerdConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Database   DatabaseConfig `mapstructure:"database"`
	Scanner    ScannerConfig  `mapstructure:"scanner"`
	Location   LocationConfig `mapstructure:"location"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Auth       AuthConfig     `mapstructure:"auth"`
	WiFi       WiFiConfig     `mapstructure:"wifi"`
}

// LoadScannerdConfig loads configuration for scannerd
func LoadScannerdConfig(configFile string, envPath string) (*ScannerdConfig, error) {
	v := configureViper("scannerd", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "swivel.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("scanner.period", "5s")
	v.SetDefault("scanner.place_radius", 50.0)
	v.SetDefault("scanner.geo_cache_ttl", "1m")
	v.SetDefault("scanner.fix_timeout", "10s")
	v.SetDefault("scanner.auto_start", false)
	v.SetDefault("location.provider", "gpsd")
	v.SetDefault("location.gpsd_addr", "localhost:2947")
	v.SetDefault("nats.sighting_subject", "swivel.sightings")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", "scannerd")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config ScannerdConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Location.Provider != "gpsd" && config.Location.Provider != "fixed" {
		return nil, fmt.Errorf("unknown location provider %q", config.Location.Provider)
	}

	return &config, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("SWIVEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.driver",
		"database.path",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Scanner
		"scanner.period",
		"scanner.place_radius",
		"scanner.geo_cache_ttl",
		"scanner.fix_timeout",
		"scanner.auto_start",
		// Location
		"location.provider",
		"location.gpsd_addr",
		"location.latitude",
		"location.longitude",
		// NATS
		"nats.url",
		"nats.sighting_subject",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Auth
		"auth.api_keys",
		// WiFi
		"wifi.interfaces",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}
