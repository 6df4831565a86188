// Package app wires the application's shared dependencies together for the
// HTTP handlers and middleware.
package app

import (
	"log/slog"

	"bctvictracker.ca/internal/appconf"
	"bctvictracker.ca/internal/clock"
	"bctvictracker.ca/internal/gtfs"
	"bctvictracker.ca/internal/metrics"
	"bctvictracker.ca/internal/tracker"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config      appconf.Config
	GtfsConfig  gtfs.Config
	Logger      *slog.Logger
	GtfsManager *gtfs.Manager
	Tracker     *tracker.Service
	Clock       clock.Clock
	Metrics     *metrics.Metrics
}
