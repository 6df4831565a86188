package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bctvictracker.ca/internal/appconf"
)

func writeMinimalSchedule(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"stops.csv": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"100032,Douglas St at Fort St,48.4244,-123.3656\n",
		"routes.csv": "route_id,agency_id,route_short_name,route_long_name\n" +
			"6-VIC,48,6,Downtown/Royal Oak\n",
		"trips.csv": "trip_id,route_id,service_id,block_id,trip_headsign,shape_id\n" +
			"48:1:601,6-VIC,11,601,Downtown,\n",
		"calendar_dates.csv": "service_id,date,exception_type\n" +
			"11,20250314,1\n",
		"stop_times.csv": "trip_id,stop_sequence,stop_id,arrival_time,departure_time\n" +
			"48:1:601,1,100032,08:05:00,08:05:00\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestBuildApplication(t *testing.T) {
	cfg := appconf.Config{
		Port:            4000,
		Env:             appconf.Test,
		DataDir:         t.TempDir(),
		GtfsSource:      writeMinimalSchedule(t),
		RefreshInterval: 30 * time.Second,
	}

	application, err := BuildApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = application.GtfsManager.Shutdown()
		application.Metrics.Shutdown()
	})

	assert.NotNil(t, application.Logger)
	assert.NotNil(t, application.GtfsManager)
	assert.NotNil(t, application.Tracker)
	assert.NotNil(t, application.Metrics)
	assert.Equal(t, cfg, application.Config)

	count, err := application.GtfsManager.GtfsDB.Queries.CountStops(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBuildApplicationWithoutStaticSource(t *testing.T) {
	cfg := appconf.Config{
		Port:            4000,
		Env:             appconf.Test,
		DataDir:         t.TempDir(),
		RefreshInterval: 30 * time.Second,
	}

	application, err := BuildApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = application.GtfsManager.Shutdown()
		application.Metrics.Shutdown()
	})

	count, err := application.GtfsManager.GtfsDB.Queries.CountStops(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
