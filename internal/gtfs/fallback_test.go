package gtfs

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bctvictracker.ca/internal/appconf"
)

func TestSnapshotFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	manager := &Manager{config: Config{DataDir: dir, Env: appconf.Test}}

	original := NewSnapshot(
		[]VehiclePosition{{ID: "153220039517", TripID: "48:1:601", RouteID: "6-VIC", Lat: 48.42}},
		[]TripStopUpdate{{TripID: "48:1:601", StopID: "100032", StopSequence: 1, DelaySeconds: 120}},
		time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC),
	)

	require.NoError(t, manager.writeSnapshotFiles(original))
	assert.FileExists(t, filepath.Join(dir, "bus_updates.json"))
	assert.FileExists(t, filepath.Join(dir, "trip_updates.json"))

	restored, err := manager.loadSnapshotFromDisk()
	require.NoError(t, err)
	require.Len(t, restored.Vehicles, 1)
	require.Len(t, restored.TripUpdates, 1)
	assert.Equal(t, "153220039517", restored.Vehicles[0].ID)
	assert.Equal(t, int64(120), restored.TripUpdates[0].DelaySeconds)

	// Lookup indexes must be rebuilt, not just the slices.
	v, ok := restored.VehicleForTrip("48:1:601")
	require.True(t, ok)
	assert.Equal(t, "6-VIC", v.RouteID)
}

func TestLoadSnapshotFromDiskMissingFiles(t *testing.T) {
	manager := &Manager{config: Config{DataDir: t.TempDir(), Env: appconf.Test}}

	_, err := manager.loadSnapshotFromDisk()
	assert.Error(t, err)
}

func TestWriteSnapshotFilesNoDataDir(t *testing.T) {
	manager := &Manager{config: Config{Env: appconf.Test}}

	assert.NoError(t, manager.writeSnapshotFiles(emptySnapshot()))
}

func TestLoadRemoteFallback(t *testing.T) {
	vehiclesServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"153220039517","lat":48.42,"lon":-123.36,"route":"6-VIC","trip_id":"48:1:601"}]`))
	}))
	defer vehiclesServer.Close()

	updatesServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"trip_id":"48:1:601","route_id":"6-VIC","stop_id":"100032","delay":120,"stop_sequence":1,"time":0}]`))
	}))
	defer updatesServer.Close()

	manager := &Manager{config: Config{
		Env:                    appconf.Test,
		FallbackVehiclesURL:    vehiclesServer.URL,
		FallbackTripUpdatesURL: updatesServer.URL,
	}}

	manager.loadRemoteFallback(nil)

	snapshot := manager.Snapshot()
	require.Len(t, snapshot.Vehicles, 1)
	require.Len(t, snapshot.TripUpdates, 1)
	assert.Equal(t, "9517", snapshot.Vehicles[0].BusNumber())

	u, ok := snapshot.UpdateForTripStop("48:1:601", "100032")
	require.True(t, ok)
	assert.Equal(t, int64(120), u.DelaySeconds)
}

func TestLoadRemoteFallbackNoURLsConfigured(t *testing.T) {
	manager := &Manager{config: Config{Env: appconf.Test}}

	manager.loadRemoteFallback(nil)

	assert.Empty(t, manager.Snapshot().Vehicles)
}
