package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bctvictracker.ca/internal/gtfs"
)

func TestBlockIDForTrip(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	// Static block_id wins for known trips.
	assert.Equal(t, "601", service.blockIDForTrip(ctx, "48:1:601"))

	// Unknown trips fall back to the trip id's last colon segment.
	assert.Equal(t, "777", service.blockIDForTrip(ctx, "48:5:777"))
	assert.Equal(t, "", service.blockIDForTrip(ctx, "no-colons"))
}

func TestFindVehicleForTripDirectMatch(t *testing.T) {
	service, _ := newTestService(t)
	snapshot := gtfs.NewSnapshot(
		[]gtfs.VehiclePosition{{ID: "153220039517", TripID: "48:1:601"}},
		nil, time.Now(),
	)

	vehicle, scheduled := service.findVehicleForTrip(context.Background(), "48:1:601", snapshot)
	require.NotNil(t, vehicle)
	assert.False(t, scheduled)
	assert.Equal(t, "9517", vehicle.BusNumber())
}

func TestFindVehicleForTripBlockContinuation(t *testing.T) {
	service, _ := newTestService(t)
	// The vehicle reports trip 48:1:601; trip 48:2:601 shares block 601.
	snapshot := gtfs.NewSnapshot(
		[]gtfs.VehiclePosition{{ID: "153220039517", TripID: "48:1:601"}},
		nil, time.Now(),
	)

	vehicle, scheduled := service.findVehicleForTrip(context.Background(), "48:2:601", snapshot)
	require.NotNil(t, vehicle)
	assert.True(t, scheduled)
	assert.Equal(t, "9517", vehicle.BusNumber())
}

func TestFindVehicleForTripNoMatch(t *testing.T) {
	service, _ := newTestService(t)
	snapshot := gtfs.NewSnapshot(nil, nil, time.Now())

	vehicle, scheduled := service.findVehicleForTrip(context.Background(), "48:2:601", snapshot)
	assert.Nil(t, vehicle)
	assert.False(t, scheduled)
}

func TestFindVehicleForTripIsIdempotent(t *testing.T) {
	service, _ := newTestService(t)
	snapshot := gtfs.NewSnapshot(
		[]gtfs.VehiclePosition{{ID: "153220039517", TripID: "48:1:601"}},
		nil, time.Now(),
	)

	first, firstScheduled := service.findVehicleForTrip(context.Background(), "48:2:601", snapshot)
	second, secondScheduled := service.findVehicleForTrip(context.Background(), "48:2:601", snapshot)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, firstScheduled, secondScheduled)
}

func TestBlockItineraryOrdersByDeparture(t *testing.T) {
	service, _ := newTestService(t)

	itinerary, err := service.blockItinerary(context.Background(), "48:2:601")
	require.NoError(t, err)
	require.Len(t, itinerary, 3)

	assert.Equal(t, "48:1:601", itinerary[0].TripID)
	assert.Equal(t, "6", itinerary[0].RouteName)
	assert.Equal(t, "Downtown", itinerary[0].Headsign)
	assert.Equal(t, "08:05", itinerary[0].DepartureTime)

	assert.Equal(t, "48:2:601", itinerary[1].TripID)
	assert.Equal(t, "Royal Oak", itinerary[1].Headsign)
	assert.Equal(t, "08:45", itinerary[1].DepartureTime)

	// The post-midnight run keeps its 24+ hour form and sorts last.
	assert.Equal(t, "48:8:601", itinerary[2].TripID)
	assert.Equal(t, "95", itinerary[2].RouteName)
	assert.Equal(t, "25:10", itinerary[2].DepartureTime)
}

func TestBlockItineraryUnknownBlock(t *testing.T) {
	service, _ := newTestService(t)

	itinerary, err := service.blockItinerary(context.Background(), "48:5:999")
	require.NoError(t, err)
	assert.Empty(t, itinerary)
}

func TestRouteShortName(t *testing.T) {
	assert.Equal(t, "6", routeShortName("6-VIC"))
	assert.Equal(t, "6A", routeShortName("6A-VIC"))
	assert.Equal(t, "95", routeShortName("95-VIC"))
	assert.Equal(t, "X10", routeShortName("X10"))
}
