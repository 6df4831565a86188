package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bctvictracker.ca/internal/gtfs"
)

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int64
		expected int64
	}{
		{"exact positive", 120, 60, 2},
		{"exact negative", -120, 60, -2},
		{"positive remainder", 119, 60, 1},
		{"negative floors toward negative infinity", -90, 60, -2},
		{"small negative", -1, 60, -1},
		{"zero", 0, 60, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, floorDiv(tc.a, tc.b))
		})
	}
}

func TestDelayToMinutesIsFloorNotTruncation(t *testing.T) {
	// 90 seconds early is 2 minutes early, not 1.
	assert.Equal(t, int64(-2), delayToMinutes(-90))
	assert.Equal(t, int64(1), delayToMinutes(90))
	assert.Equal(t, int64(0), delayToMinutes(30))
	assert.Equal(t, int64(-1), delayToMinutes(-30))
}

func TestEtaForUpdateZeroTimeFirstStop(t *testing.T) {
	service, _ := newTestService(t)

	eta := service.etaForUpdate(&gtfs.TripStopUpdate{
		PredictedTime: 0,
		StopSequence:  1,
		StartTime:     "08:05:00",
	})
	assert.Equal(t, "08:05", eta)
}

func TestEtaForUpdatePredictedTime(t *testing.T) {
	service, _ := newTestService(t)

	eta := service.etaForUpdate(&gtfs.TripStopUpdate{
		PredictedTime: localUnix(t, 8, 17),
		StopSequence:  3,
	})
	assert.Equal(t, "08:17", eta)
}

func TestEtaForUpdateNoData(t *testing.T) {
	service, _ := newTestService(t)

	assert.Equal(t, "", service.etaForUpdate(&gtfs.TripStopUpdate{}))
}

func TestDescribeRunning(t *testing.T) {
	tests := []struct {
		name         string
		delayMinutes int64
		stopSequence int64
		expected     string
	}{
		{
			name:         "on schedule at first stop",
			delayMinutes: 0,
			stopSequence: 1,
			expected:     "9517 will be running the 6 Downtown departing at 08:05",
		},
		{
			name:         "on schedule mid trip",
			delayMinutes: 0,
			stopSequence: 3,
			expected:     "9517 is currently on schedule running the 6 Downtown",
		},
		{
			name:         "one minute early",
			delayMinutes: -1,
			stopSequence: 3,
			expected:     "9517 is currently 1 minute early running the 6 Downtown",
		},
		{
			name:         "two minutes early",
			delayMinutes: -2,
			stopSequence: 3,
			expected:     "9517 is currently 2 minutes early running the 6 Downtown",
		},
		{
			name:         "one minute late",
			delayMinutes: 1,
			stopSequence: 3,
			expected:     "9517 is currently 1 minute late running the 6 Downtown",
		},
		{
			name:         "five minutes late",
			delayMinutes: 5,
			stopSequence: 3,
			expected:     "9517 is currently 5 minutes late running the 6 Downtown",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := describeRunning("9517", "6", "Downtown", tc.delayMinutes, tc.stopSequence, "08:05:00")
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestOccupancyText(t *testing.T) {
	assert.Equal(t, "Occupancy Status: Empty", occupancyText(0))
	assert.Equal(t, "Occupancy Status: Many Seats Available", occupancyText(1))
	assert.Equal(t, "Occupancy Status: Some Seats Available", occupancyText(2))
	assert.Equal(t, "Occupancy Status: Standing Room Only", occupancyText(3))
	assert.Equal(t, "Occupancy Status: Full", occupancyText(4))
	assert.Equal(t, "Occupancy Status: Full", occupancyText(7))
}

func TestSpeedText(t *testing.T) {
	assert.Equal(t, "Current Speed: 36.0 km/h", speedText(10))
	assert.Equal(t, "Current Speed: 30.6 km/h", speedText(8.5))
	assert.Equal(t, "Current Speed: 0 km/h", speedText(0))
}

func TestUpdatedText(t *testing.T) {
	service, _ := newTestService(t)

	// 15:04:05 UTC is 08:04:05 Pacific daylight time.
	assert.Equal(t, "Updated at 08:04:05", service.updatedText("2025-03-14T15:04:05Z"))
	assert.Equal(t, "", service.updatedText("not a timestamp"))
}

func TestTrimToHHMM(t *testing.T) {
	assert.Equal(t, "08:05", trimToHHMM("08:05:00"))
	assert.Equal(t, "25:01", trimToHHMM("25:01:30"))
	assert.Equal(t, "8:05", trimToHHMM("8:05"))
}
