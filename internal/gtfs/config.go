package gtfs

import (
	"time"

	"bctvictracker.ca/internal/appconf"
)

// Config holds GTFS configuration for the manager.
type Config struct {
	// GtfsSource is a local GTFS zip, a directory of extracted CSV tables,
	// or an HTTP URL for the static feed.
	GtfsSource string

	TripUpdatesURL      string
	VehiclePositionsURL string

	// Last-known-good JSON snapshots published by the scheduled batch
	// workflow, used when live fetching has never succeeded and no on-disk
	// snapshot exists.
	FallbackVehiclesURL    string
	FallbackTripUpdatesURL string

	// DataDir holds the SQLite schedule database and JSON snapshot files.
	DataDir string

	// RefreshInterval bounds how often Refresh actually hits the feeds.
	RefreshInterval time.Duration

	Env     appconf.Environment
	Verbose bool
}

func (config Config) realTimeDataEnabled() bool {
	return config.TripUpdatesURL != "" && config.VehiclePositionsURL != ""
}
