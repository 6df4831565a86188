package tracker

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"bctvictracker.ca/gtfsdb"
	"bctvictracker.ca/internal/appconf"
	"bctvictracker.ca/internal/clock"
)

// The fixture models a Friday morning in Victoria: service id 11 runs today,
// service id 12 does not. Block 601 has two trips so block continuation and
// itineraries are exercised; trip 48:9:603 exists but is not scheduled today.
func writeScheduleFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"stops.csv": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"100032,Douglas St at Fort St,48.4244,-123.3656\n" +
			"100033,Douglas St at View St,48.4254,-123.3651\n" +
			"100040,Richmond at Oak Bay Ave,48.4300,-123.3300\n" +
			"900000,Langford Transit Yard,48.4500,-123.5000\n",
		"routes.csv": "route_id,agency_id,route_short_name,route_long_name\n" +
			"6-VIC,48,6,Downtown/Royal Oak\n" +
			"6A-VIC,48,6A,Downtown Via Interurban\n" +
			"95-VIC,48,95,Langford/Downtown\n",
		"trips.csv": "trip_id,route_id,service_id,block_id,trip_headsign,shape_id\n" +
			"48:1:601,6-VIC,11,601,Downtown,\n" +
			"48:2:601,6-VIC,11,601,Royal Oak,\n" +
			"48:3:602,6A-VIC,11,602,Downtown Via Interurban,\n" +
			"48:8:601,95-VIC,11,601,Langford,\n" +
			"48:9:603,6-VIC,12,603,Downtown,\n",
		"calendar_dates.csv": "service_id,date,exception_type\n" +
			"11,20250314,1\n" +
			"12,20250315,1\n",
		"stop_times.csv": "trip_id,stop_sequence,stop_id,arrival_time,departure_time\n" +
			"48:1:601,1,100032,08:05:00,08:05:00\n" +
			"48:1:601,2,100033,08:07:00,08:07:00\n" +
			"48:1:601,3,100040,08:15:00,08:15:00\n" +
			"48:2:601,1,100040,08:45:00,08:45:00\n" +
			"48:2:601,2,100032,08:55:00,08:55:00\n" +
			"48:3:602,1,100032,08:10:00,08:10:00\n" +
			"48:3:602,2,100033,08:12:00,08:12:00\n" +
			"48:8:601,1,100040,25:10:00,25:10:00\n" +
			"48:9:603,1,100032,08:20:00,08:20:00\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestService(t *testing.T) (*Service, *clock.MockClock) {
	t.Helper()

	client, err := gtfsdb.NewClient(gtfsdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.ImportFromDir(context.Background(), writeScheduleFixture(t)))

	loc, err := time.LoadLocation(agencyTimezone)
	require.NoError(t, err)
	mockClock := clock.NewMockClock(time.Date(2025, 3, 14, 8, 0, 0, 0, loc))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service, err := NewService(client.Queries, mockClock, logger)
	require.NoError(t, err)
	return service, mockClock
}

// localUnix is the Unix time of a clock reading on the fixture's service day.
func localUnix(t *testing.T, hour, minute int) int64 {
	t.Helper()
	loc, err := time.LoadLocation(agencyTimezone)
	require.NoError(t, err)
	return time.Date(2025, 3, 14, hour, minute, 0, 0, loc).Unix()
}
