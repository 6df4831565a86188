// helpers_for_test.go stands up the full HTTP handler against an in-memory
// schedule fixture for the handler tests.
package restapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"bctvictracker.ca/internal/app"
	"bctvictracker.ca/internal/appconf"
	"bctvictracker.ca/internal/clock"
	"bctvictracker.ca/internal/gtfs"
	"bctvictracker.ca/internal/metrics"
	"bctvictracker.ca/internal/tracker"
)

// writeScheduleFixture lays out a small GTFS CSV directory: a Friday morning
// in Victoria where service id 11 runs and service id 12 does not.
func writeScheduleFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"stops.csv": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"100032,Douglas St at Fort St,48.4244,-123.3656\n" +
			"100033,Douglas St at View St,48.4254,-123.3651\n" +
			"100040,Richmond at Oak Bay Ave,48.4300,-123.3300\n",
		"routes.csv": "route_id,agency_id,route_short_name,route_long_name\n" +
			"6-VIC,48,6,Downtown/Royal Oak\n" +
			"95-VIC,48,95,Langford/Downtown\n",
		"trips.csv": "trip_id,route_id,service_id,block_id,trip_headsign,shape_id\n" +
			"48:1:601,6-VIC,11,601,Downtown,\n" +
			"48:9:603,6-VIC,12,603,Downtown,\n",
		"calendar_dates.csv": "service_id,date,exception_type\n" +
			"11,20250314,1\n" +
			"12,20250315,1\n",
		"stop_times.csv": "trip_id,stop_sequence,stop_id,arrival_time,departure_time\n" +
			"48:1:601,1,100032,08:05:00,08:05:00\n" +
			"48:1:601,2,100033,08:07:00,08:07:00\n" +
			"48:1:601,3,100040,08:15:00,08:15:00\n" +
			"48:9:603,1,100032,08:20:00,08:20:00\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// newTestAPI builds a RestAPI on an in-memory database with a fixed clock at
// 2025-03-14 08:00 Pacific. No realtime feed URLs are configured, so Refresh
// is a no-op and snapshots stay empty unless injected.
func newTestAPI(t *testing.T) (*RestAPI, http.Handler, *clock.MockClock) {
	t.Helper()

	gtfsConfig := gtfs.Config{
		GtfsSource: writeScheduleFixture(t),
		DataDir:    t.TempDir(),
		Env:        appconf.Test,
	}

	manager, err := gtfs.InitGtfsManager(gtfsConfig)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Shutdown() })

	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	mockClock := clock.NewMockClock(time.Date(2025, 3, 14, 8, 0, 0, 0, loc))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	trackerService, err := tracker.NewService(manager.GtfsDB.Queries, mockClock, logger)
	require.NoError(t, err)

	application := &app.Application{
		Config:      appconf.Config{Env: appconf.Test},
		GtfsConfig:  gtfsConfig,
		Logger:      logger,
		GtfsManager: manager,
		Tracker:     trackerService,
		Clock:       mockClock,
		Metrics:     metrics.NewWithLogger(logger),
	}

	api := New(application)
	t.Cleanup(api.rateLimiter.Stop)

	return api, api.Handler(nil), mockClock
}

// serveRequest runs a GET request through the handler and returns the
// recorded response.
func serveRequest(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

// mustRequest builds a GET request for a target path.
func mustRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, target, nil)
}

// record runs a single handler func outside the routed stack.
func record(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

// envelope mirrors models.ResponseModel with the data left raw for
// per-test decoding.
type envelope struct {
	Code        int             `json:"code"`
	CurrentTime int64           `json:"currentTime"`
	Data        json.RawMessage `json:"data"`
	Text        string          `json:"text"`
	Version     int             `json:"version"`
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &env))
	return env
}
