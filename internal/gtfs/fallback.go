package gtfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bctvictracker.ca/internal/logging"
)

const (
	vehiclesSnapshotFile    = "bus_updates.json"
	tripUpdatesSnapshotFile = "trip_updates.json"
)

func (manager *Manager) snapshotPath(name string) string {
	return filepath.Join(manager.config.DataDir, name)
}

// writeSnapshotFiles persists the snapshot as the two JSON files the batch
// publish workflow also produces, so a restart can resume from the last
// refresh instead of an empty cache. Writes go through a temp file and
// rename so readers never see a partial file.
func (manager *Manager) writeSnapshotFiles(snapshot *Snapshot) error {
	if manager.config.DataDir == "" {
		return nil
	}
	if err := writeJSONAtomic(manager.snapshotPath(vehiclesSnapshotFile), snapshot.Vehicles); err != nil {
		return err
	}
	return writeJSONAtomic(manager.snapshotPath(tripUpdatesSnapshotFile), snapshot.TripUpdates)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// loadSnapshotFromDisk rebuilds a snapshot from the persisted JSON files.
// Both files must parse; the snapshot timestamp comes from the vehicle
// file's modification time since that is when the data was last live.
func (manager *Manager) loadSnapshotFromDisk() (*Snapshot, error) {
	if manager.config.DataDir == "" {
		return nil, os.ErrNotExist
	}

	vehiclePath := manager.snapshotPath(vehiclesSnapshotFile)

	var vehicles []VehiclePosition
	if err := readJSONFile(vehiclePath, &vehicles); err != nil {
		return nil, err
	}

	var updates []TripStopUpdate
	if err := readJSONFile(manager.snapshotPath(tripUpdatesSnapshotFile), &updates); err != nil {
		return nil, err
	}

	fetchedAt := time.Time{}
	if info, err := os.Stat(vehiclePath); err == nil {
		fetchedAt = info.ModTime().UTC()
	}

	return NewSnapshot(vehicles, updates, fetchedAt), nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// loadRemoteFallback fetches the last-known-good JSON snapshots from the
// configured fallback URLs. Used only when live fetching has never succeeded
// and there is no usable on-disk snapshot; stale data beats no data for the
// read paths that only need schedule correlation.
func (manager *Manager) loadRemoteFallback(logger *slog.Logger) {
	if manager.config.FallbackVehiclesURL == "" && manager.config.FallbackTripUpdatesURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var vehicles []VehiclePosition
	if manager.config.FallbackVehiclesURL != "" {
		if err := fetchJSON(ctx, manager.config.FallbackVehiclesURL, &vehicles); err != nil {
			logging.LogError(logger, "failed to fetch fallback vehicle snapshot", err,
				slog.String("url", manager.config.FallbackVehiclesURL))
			return
		}
	}

	var updates []TripStopUpdate
	if manager.config.FallbackTripUpdatesURL != "" {
		if err := fetchJSON(ctx, manager.config.FallbackTripUpdatesURL, &updates); err != nil {
			logging.LogError(logger, "failed to fetch fallback trip update snapshot", err,
				slog.String("url", manager.config.FallbackTripUpdatesURL))
			return
		}
	}

	snapshot := NewSnapshot(vehicles, updates, time.Now().UTC())
	manager.setSnapshot(snapshot)
	manager.recordSnapshotMetrics(snapshot)

	logging.LogOperation(logger, "realtime_snapshot_loaded_from_fallback",
		slog.Int("vehicles", len(vehicles)),
		slog.Int("trip_updates", len(updates)))
}

func fetchJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := realtimeHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fallback fetch failed: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "gtfs_fallback_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fallback fetch failed: %s returned %s", url, resp.Status)
	}

	const maxBodySize = 25 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return fmt.Errorf("failed to read fallback response: %w", err)
	}
	if int64(len(body)) > maxBodySize {
		return fmt.Errorf("fallback response exceeds size limit of %d bytes", maxBodySize)
	}

	return json.Unmarshal(body, v)
}
