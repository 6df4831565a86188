// Package appconf holds application-level configuration shared across the
// tracker: runtime environment, HTTP port, and the locations of the static
// GTFS data and realtime feeds.
package appconf

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment identifies the runtime environment of the application.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

// EnvFlagToEnvironment converts an environment flag value to an Environment.
// Unknown values fall back to Development.
func EnvFlagToEnvironment(flag string) Environment {
	switch flag {
	case "production":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

func (e Environment) String() string {
	switch e {
	case Production:
		return "production"
	case Test:
		return "test"
	default:
		return "development"
	}
}

// Config holds the application configuration.
type Config struct {
	Port    int
	Env     Environment
	Verbose bool

	// DataDir is where the SQLite schedule database and the JSON snapshot
	// files live. Defaults to ./data.
	DataDir string

	// GtfsSource is either a local GTFS zip, a directory of extracted CSV
	// tables, or an HTTP URL for the static feed.
	GtfsSource string

	TripUpdatesURL      string
	VehiclePositionsURL string

	// Fallback URLs for last-known-good JSON snapshots published by the
	// scheduled batch workflow. Used only when no live fetch has ever
	// succeeded and no on-disk snapshot exists.
	FallbackVehiclesURL    string
	FallbackTripUpdatesURL string

	// RefreshInterval bounds how often user-triggered queries may actually
	// hit the realtime feeds.
	RefreshInterval time.Duration

	// RateLimit is the number of requests per second allowed per client IP.
	// Zero or negative disables limiting.
	RateLimit int
}

// Load reads configuration from the environment, honoring a local .env file
// if one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:                   4000,
		Env:                    EnvFlagToEnvironment(os.Getenv("TRACKER_ENV")),
		DataDir:                getenvDefault("TRACKER_DATA_DIR", "data"),
		GtfsSource:             os.Getenv("TRACKER_GTFS_SOURCE"),
		TripUpdatesURL:         getenvDefault("TRACKER_TRIP_UPDATES_URL", "https://bct.tmix.se/gtfs-realtime/tripupdates.pb?operatorIds=48"),
		VehiclePositionsURL:    getenvDefault("TRACKER_VEHICLE_POSITIONS_URL", "https://bct.tmix.se/gtfs-realtime/vehicleupdates.pb?operatorIds=48"),
		FallbackVehiclesURL:    os.Getenv("TRACKER_FALLBACK_VEHICLES_URL"),
		FallbackTripUpdatesURL: os.Getenv("TRACKER_FALLBACK_TRIP_UPDATES_URL"),
		RefreshInterval:        30 * time.Second,
		RateLimit:              20,
	}

	if v := os.Getenv("TRACKER_RATE_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRACKER_RATE_LIMIT: %q", v)
		}
		cfg.RateLimit = limit
	}

	if v := os.Getenv("TRACKER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid TRACKER_PORT: %q", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("TRACKER_VERBOSE"); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRACKER_VERBOSE: %q", v)
		}
		cfg.Verbose = verbose
	}

	if v := os.Getenv("TRACKER_REFRESH_INTERVAL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("invalid TRACKER_REFRESH_INTERVAL_SECONDS: %q", v)
		}
		cfg.RefreshInterval = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
