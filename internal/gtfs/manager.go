// Package gtfs owns the live side of the tracker: it loads the static
// schedule into the database and maintains the latest realtime snapshot
// (vehicle positions and trip updates), refreshed on demand and replaced
// atomically so queries never observe a half-updated feed.
package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"bctvictracker.ca/gtfsdb"
	"bctvictracker.ca/internal/appconf"
	"bctvictracker.ca/internal/logging"
	"bctvictracker.ca/internal/metrics"
)

// Manager ties the static schedule database to the realtime snapshot.
type Manager struct {
	config Config
	GtfsDB *gtfsdb.Client

	realTimeMutex sync.RWMutex
	snapshot      *Snapshot

	// refreshLimiter bounds how often user-triggered refreshes actually hit
	// the upstream feeds; a denied token is a cheap no-op read of the cache.
	refreshLimiter *rate.Limiter

	// spatialIndex is built once after the static import and never mutated.
	spatialIndex *stopSpatialIndex

	metrics *metrics.Metrics
}

// InitGtfsManager creates a Manager, builds the schedule database from the
// configured static source, and primes the realtime snapshot from the on-disk
// JSON files when they exist.
func InitGtfsManager(config Config) (*Manager, error) {
	dbPath := ":memory:"
	if config.Env != appconf.Test {
		if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create data dir: %w", err)
		}
		dbPath = filepath.Join(config.DataDir, "gtfs.db")
	}

	client, err := gtfsdb.NewClient(gtfsdb.NewConfig(dbPath, config.Env, config.Verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to create GTFS database client: %w", err)
	}

	interval := config.RefreshInterval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	manager := &Manager{
		config:         config,
		GtfsDB:         client,
		refreshLimiter: rate.NewLimiter(rate.Every(interval), 1),
	}

	ctx := context.Background()
	if err := manager.loadStaticData(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	spatialIndex, err := buildStopSpatialIndex(ctx, client.Queries)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("error building stop spatial index: %w", err)
	}
	manager.spatialIndex = spatialIndex

	if snapshot, err := manager.loadSnapshotFromDisk(); err == nil {
		manager.snapshot = snapshot
	}

	return manager, nil
}

// StopsNear returns stops within radiusMeters of a point, nearest first,
// capped at limit.
func (manager *Manager) StopsNear(lat, lon, radiusMeters float64, limit int) []gtfsdb.Stop {
	return manager.spatialIndex.within(lat, lon, radiusMeters, limit)
}

// SetMetrics attaches application metrics to the manager. Optional; a nil
// metrics receiver disables instrumentation.
func (manager *Manager) SetMetrics(m *metrics.Metrics) {
	manager.metrics = m
}

// loadStaticData imports the static schedule from the configured source.
// A missing source is tolerated: the tables stay empty and every schedule
// lookup degrades to an empty result.
func (manager *Manager) loadStaticData(ctx context.Context) error {
	logger := slog.Default().With(slog.String("component", "gtfs_manager"))
	source := manager.config.GtfsSource

	if source == "" {
		logging.LogOperation(logger, "no_static_gtfs_source_configured_tables_empty")
		return nil
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if err := manager.GtfsDB.DownloadAndStore(ctx, source); err != nil {
			return fmt.Errorf("error downloading static GTFS data: %w", err)
		}
		return nil
	}

	info, err := os.Stat(source)
	if err != nil {
		logging.LogError(logger, "static GTFS source not found, tables stay empty", err,
			slog.String("source", source))
		return nil
	}

	if info.IsDir() {
		if err := manager.GtfsDB.ImportFromDir(ctx, source); err != nil {
			return fmt.Errorf("error importing static GTFS directory: %w", err)
		}
		return nil
	}

	if err := manager.GtfsDB.ImportFromZip(ctx, source); err != nil {
		return fmt.Errorf("error importing static GTFS zip: %w", err)
	}
	return nil
}

// Snapshot returns the current realtime snapshot. Never nil: before the
// first successful fetch it is empty, not absent.
func (manager *Manager) Snapshot() *Snapshot {
	manager.realTimeMutex.RLock()
	defer manager.realTimeMutex.RUnlock()
	if manager.snapshot == nil {
		return emptySnapshot()
	}
	return manager.snapshot
}

// CurrentVehicles returns the latest vehicle position snapshot.
func (manager *Manager) CurrentVehicles() []VehiclePosition {
	return manager.Snapshot().Vehicles
}

// CurrentTripUpdates returns the latest trip update snapshot.
func (manager *Manager) CurrentTripUpdates() []TripStopUpdate {
	return manager.Snapshot().TripUpdates
}

func (manager *Manager) setSnapshot(snapshot *Snapshot) {
	manager.realTimeMutex.Lock()
	defer manager.realTimeMutex.Unlock()
	manager.snapshot = snapshot
}

// Shutdown releases the manager's resources.
func (manager *Manager) Shutdown() error {
	if manager.GtfsDB != nil {
		return manager.GtfsDB.Close()
	}
	return nil
}
