package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gogtfs "github.com/OneBusAway/go-gtfs"

	"bctvictracker.ca/internal/logging"
)

const defaultRefreshInterval = 30 * time.Second

// realtimeHTTPClient is a dedicated HTTP client for GTFS-RT feed fetching,
// configured with explicit timeouts and transport limits to avoid the pitfalls
// of http.DefaultClient (no timeout, shared global state).
// The transport is cloned from http.DefaultTransport to preserve important
// defaults (ProxyFromEnvironment, DialContext, HTTP/2, keepalives).
var realtimeHTTPClient = newRealtimeHTTPClient()

func newRealtimeHTTPClient() *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 50
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		// Timeout is an absolute safety net per request. Refresh also sets a
		// 15s context timeout; the stricter of the two wins. Keep this <= the
		// context timeout so the client enforces the bound even if a caller
		// forgets a context.
		Timeout:   10 * time.Second,
		Transport: transport,
	}
}

func loadRealtimeData(ctx context.Context, source string) (*gogtfs.Realtime, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := realtimeHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute GTFS-RT request: %w", err)
	}

	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "gtfs_realtime_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtfs-rt fetch failed: %s returned %s", source, resp.Status)
	}

	const maxBodySize = 25 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > maxBodySize {
		return nil, fmt.Errorf("GTFS-RT response exceeds size limit of %d bytes", maxBodySize)
	}

	return gogtfs.ParseRealtime(body, &gogtfs.ParseRealtimeOptions{})
}

// Refresh fetches both realtime feeds and swaps in a new snapshot. It is
// throttled by the configured refresh interval: calls inside the window
// return immediately and readers keep serving the current snapshot.
//
// Feed failures never surface to the caller. When one feed fails its half of
// the previous snapshot is carried forward; when both fail the previous
// snapshot stays in place untouched.
func (manager *Manager) Refresh(ctx context.Context) {
	if !manager.config.realTimeDataEnabled() {
		return
	}
	if !manager.refreshLimiter.Allow() {
		return
	}

	logger := logging.FromContext(ctx).With(slog.String("component", "gtfs_realtime"))

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var tripData, vehicleData *gogtfs.Realtime
	var tripErr, vehicleErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		started := time.Now()
		tripData, tripErr = loadRealtimeData(ctx, manager.config.TripUpdatesURL)
		manager.observeFetch("trip_updates", time.Since(started), tripErr)
		if tripErr != nil {
			logging.LogError(logger, "Error loading GTFS-RT trip updates data", tripErr,
				slog.String("url", manager.config.TripUpdatesURL))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		started := time.Now()
		vehicleData, vehicleErr = loadRealtimeData(ctx, manager.config.VehiclePositionsURL)
		manager.observeFetch("vehicle_positions", time.Since(started), vehicleErr)
		if vehicleErr != nil {
			logging.LogError(logger, "Error loading GTFS-RT vehicle positions data", vehicleErr,
				slog.String("url", manager.config.VehiclePositionsURL))
		}
	}()

	wg.Wait()

	if ctx.Err() != nil && tripErr != nil && vehicleErr != nil {
		return
	}

	previous := manager.Snapshot()
	fetchedAt := time.Now().UTC()

	vehicles := previous.Vehicles
	if vehicleErr == nil && vehicleData != nil {
		vehicles = flattenVehicles(vehicleData, fetchedAt)
	}

	updates := previous.TripUpdates
	if tripErr == nil && tripData != nil {
		updates = flattenTripUpdates(tripData)
	}

	if tripErr != nil && vehicleErr != nil {
		// Nothing new arrived, keep the stale snapshot and its timestamp.
		// With no stale data at all, reach for the last-known-good remote
		// copy rather than serving nothing.
		if previous.FetchedAt.IsZero() && len(previous.Vehicles) == 0 && len(previous.TripUpdates) == 0 {
			manager.loadRemoteFallback(logger)
		}
		return
	}

	snapshot := NewSnapshot(vehicles, updates, fetchedAt)
	manager.setSnapshot(snapshot)
	manager.recordSnapshotMetrics(snapshot)

	logging.LogOperation(logger, "realtime_snapshot_refreshed",
		slog.Int("vehicles", len(snapshot.Vehicles)),
		slog.Int("trip_updates", len(snapshot.TripUpdates)))

	if err := manager.writeSnapshotFiles(snapshot); err != nil {
		logging.LogError(logger, "failed to persist realtime snapshot", err)
	}
}

func (manager *Manager) observeFetch(feed string, duration time.Duration, err error) {
	if manager.metrics == nil {
		return
	}
	manager.metrics.ObserveFeedFetch(feed, duration, err)
}

func (manager *Manager) recordSnapshotMetrics(snapshot *Snapshot) {
	if manager.metrics == nil {
		return
	}
	manager.metrics.SnapshotVehicles.Set(float64(len(snapshot.Vehicles)))
	manager.metrics.SnapshotUpdates.Set(float64(len(snapshot.TripUpdates)))
	manager.metrics.SnapshotAge.Set(0)
}
