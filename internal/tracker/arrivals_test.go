package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bctvictracker.ca/internal/gtfs"
)

// scenarioSnapshot reproduces the morning the fixture describes: 9517 is on
// trip 48:1:601 due at stop 100032 at 08:05, the 6A trip is due at 08:10,
// and trip 48:9:603 reports an 08:20 prediction even though its service does
// not run today.
func scenarioSnapshot(t *testing.T) *gtfs.Snapshot {
	t.Helper()
	return snapshotWith(
		[]gtfs.VehiclePosition{
			{ID: "1532209517", TripID: "48:1:601", RouteID: "6-VIC", Lat: 48.4240, Lon: -123.3660},
		},
		[]gtfs.TripStopUpdate{
			{TripID: "48:1:601", StopID: "100032", StopSequence: 1, PredictedTime: localUnix(t, 8, 5), StartTime: "08:05:00"},
			{TripID: "48:9:603", StopID: "100032", StopSequence: 1, PredictedTime: localUnix(t, 8, 20), StartTime: "08:20:00"},
			{TripID: "48:3:602", StopID: "100032", StopSequence: 1, PredictedTime: localUnix(t, 8, 10), StartTime: "08:10:00"},
		},
	)
}

func TestStopArrivalsNoStopSelected(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.StopArrivals(context.Background(), "", "", false, 10, snapshotWith(nil, nil))
	assert.ErrorIs(t, err, ErrNoStopSelected)
}

func TestStopArrivalsUnknownStop(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.StopArrivals(context.Background(), "99999", "", false, 10, snapshotWith(nil, nil))
	var unknownStop *UnknownStopError
	require.ErrorAs(t, err, &unknownStop)
	assert.Equal(t, "99999 is not a valid Stop Number", unknownStop.Error())

	_, err = service.StopArrivals(context.Background(), "douglas", "", false, 10, snapshotWith(nil, nil))
	require.ErrorAs(t, err, &unknownStop)
	assert.Equal(t, "douglas is not a valid Stop Number", unknownStop.Error())
}

func TestStopArrivalsRouteFilterWithoutVariants(t *testing.T) {
	service, _ := newTestService(t)

	result, err := service.StopArrivals(context.Background(), "100032", "6", false, 10, scenarioSnapshot(t))
	require.NoError(t, err)

	assert.Equal(t, "Douglas St at Fort St", result.StopName)
	require.Len(t, result.Rows, 2)

	// The live 08:05 prediction leads; the 6A trip is a different route id
	// and the 08:20 trip's service does not run today.
	assert.Equal(t, "08:05", result.Rows[0].ArrivalTime)
	assert.Equal(t, "6 Downtown", result.Rows[0].Headsign)
	assert.Equal(t, "9517", result.Rows[0].Bus)
	assert.False(t, result.Rows[0].Scheduled)

	// The later block 601 trip has no live entry yet; 9517 will work it.
	assert.Equal(t, "08:55", result.Rows[1].ArrivalTime)
	assert.Equal(t, "6 Royal Oak", result.Rows[1].Headsign)
	assert.Equal(t, "9517 (Scheduled)", result.Rows[1].Bus)
	assert.True(t, result.Rows[1].Scheduled)

	// Only the live arrival contributes a map position.
	require.Len(t, result.VehiclePositions, 1)
	assert.InDelta(t, 48.4240, result.VehiclePositions[0].Lat, 0.0001)
}

func TestStopArrivalsRouteFilterWithVariants(t *testing.T) {
	service, _ := newTestService(t)

	result, err := service.StopArrivals(context.Background(), "100032", "6", true, 10, scenarioSnapshot(t))
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)

	assert.Equal(t, "08:05", result.Rows[0].ArrivalTime)
	assert.Equal(t, "08:10", result.Rows[1].ArrivalTime)
	assert.Equal(t, "6A Downtown Via Interurban", result.Rows[1].Headsign)
	assert.Equal(t, "08:55", result.Rows[2].ArrivalTime)

	for _, row := range result.Rows {
		assert.NotEqual(t, "08:20", row.ArrivalTime)
	}
}

func TestStopArrivalsSortedAndCutOff(t *testing.T) {
	service, mockClock := newTestService(t)
	snapshot := scenarioSnapshot(t)

	result, err := service.StopArrivals(context.Background(), "100032", "", false, 10, snapshot)
	require.NoError(t, err)

	now := mockClock.Now()
	var previous string
	for _, row := range result.Rows {
		assert.GreaterOrEqual(t, row.ArrivalTime, previous)
		previous = row.ArrivalTime
		assert.GreaterOrEqual(t, row.ArrivalTime, now.Format("15:04"))
	}
}

func TestStopArrivalsPastArrivalsExcluded(t *testing.T) {
	service, mockClock := newTestService(t)
	mockClock.Set(mockClock.Now().Add(8 * time.Minute)) // 08:08

	result, err := service.StopArrivals(context.Background(), "100032", "", false, 10, scenarioSnapshot(t))
	require.NoError(t, err)

	for _, row := range result.Rows {
		assert.NotEqual(t, "08:05", row.ArrivalTime)
	}
}

func TestStopArrivalsLimit(t *testing.T) {
	service, _ := newTestService(t)
	snapshot := scenarioSnapshot(t)

	ten, err := service.StopArrivals(context.Background(), "100032", "", false, 10, snapshot)
	require.NoError(t, err)

	one, err := service.StopArrivals(context.Background(), "100032", "", false, 1, snapshot)
	require.NoError(t, err)
	require.Len(t, one.Rows, 1)
	assert.Equal(t, ten.Rows[0], one.Rows[0])
}

func TestStopArrivalsLivePredictionOverridesSchedule(t *testing.T) {
	service, _ := newTestService(t)
	// The 08:05 trip is running 3 minutes late.
	snapshot := snapshotWith(nil, []gtfs.TripStopUpdate{
		{TripID: "48:1:601", StopID: "100032", StopSequence: 1, PredictedTime: localUnix(t, 8, 8), DelaySeconds: 180},
	})

	result, err := service.StopArrivals(context.Background(), "100032", "6", false, 10, snapshot)
	require.NoError(t, err)
	require.NotEmpty(t, result.Rows)
	assert.Equal(t, "08:08", result.Rows[0].ArrivalTime)
}

func TestStopArrivalsUnknownTripKeptBestEffort(t *testing.T) {
	service, _ := newTestService(t)
	// A live entry for a trip absent from the static table entirely.
	snapshot := snapshotWith(nil, []gtfs.TripStopUpdate{
		{TripID: "48:55:999", RouteID: "4-VIC", StopID: "100032", StopSequence: 4, PredictedTime: localUnix(t, 8, 30)},
	})

	result, err := service.StopArrivals(context.Background(), "100032", "", false, 10, snapshot)
	require.NoError(t, err)

	var found bool
	for _, row := range result.Rows {
		if row.ArrivalTime == "08:30" {
			found = true
			assert.Equal(t, "Unknown", row.Bus)
		}
	}
	assert.True(t, found)
}

func TestStopArrivalsEmptyResultIsNotAnError(t *testing.T) {
	service, _ := newTestService(t)

	// No 6A trip serves stop 100040.
	result, err := service.StopArrivals(context.Background(), "100040", "6A", false, 10, snapshotWith(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}
