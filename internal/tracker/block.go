package tracker

import (
	"context"
	"sort"
	"strings"

	"bctvictracker.ca/gtfsdb"
	"bctvictracker.ca/internal/gtfs"
	"bctvictracker.ca/internal/models"
)

// blockIDForTrip resolves the operating block of a trip. The static block_id
// column is authoritative; trip ids also encode the block as their last
// colon segment, which covers trips missing from the static table.
func (s *Service) blockIDForTrip(ctx context.Context, tripID string) string {
	if trip, err := s.queries.GetTrip(ctx, tripID); err == nil && trip.BlockID != "" {
		return trip.BlockID
	}
	if i := strings.LastIndex(tripID, ":"); i >= 0 && i+1 < len(tripID) {
		return tripID[i+1:]
	}
	return ""
}

// findVehicleForTrip locates the live vehicle that serves or will serve the
// trip. When no vehicle reports the trip directly, the trip's block is
// scanned: a vehicle on any other trip of the same block will work this trip
// later, and the second return value marks that case as scheduled.
func (s *Service) findVehicleForTrip(ctx context.Context, tripID string, snapshot *gtfs.Snapshot) (*gtfs.VehiclePosition, bool) {
	if vehicle, ok := snapshot.VehicleForTrip(tripID); ok {
		return vehicle, false
	}

	blockID := s.blockIDForTrip(ctx, tripID)
	if blockID == "" {
		return nil, false
	}

	blockTrips, err := s.queries.ListTripsByBlockID(ctx, blockID)
	if err != nil {
		return nil, false
	}
	for _, trip := range blockTrips {
		if trip.ID == tripID {
			continue
		}
		if vehicle, ok := snapshot.VehicleForTrip(trip.ID); ok {
			return vehicle, true
		}
	}
	return nil, false
}

// blockItinerary lists every trip in the block of the given trip, each with
// its first-stop departure time, ordered by departure. Departure times past
// midnight keep their 24+ hour form so the day's last trips sort last.
func (s *Service) blockItinerary(ctx context.Context, tripID string) ([]models.BlockTrip, error) {
	blockID := s.blockIDForTrip(ctx, tripID)
	if blockID == "" {
		return nil, nil
	}

	blockTrips, err := s.queries.ListTripsByBlockID(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if len(blockTrips) == 0 {
		return nil, nil
	}

	tripIDs := make([]string, 0, len(blockTrips))
	for _, trip := range blockTrips {
		tripIDs = append(tripIDs, trip.ID)
	}

	departures, err := s.queries.GetFirstStopDepartures(ctx, tripIDs)
	if err != nil {
		return nil, err
	}
	departureByTrip := make(map[string]gtfsdb.FirstStopDeparture, len(departures))
	for _, d := range departures {
		departureByTrip[d.TripID] = d
	}

	type tripWithDeparture struct {
		trip    gtfsdb.Trip
		seconds int64
		display string
	}
	ordered := make([]tripWithDeparture, 0, len(blockTrips))
	for _, trip := range blockTrips {
		d, ok := departureByTrip[trip.ID]
		if !ok {
			continue
		}
		ordered = append(ordered, tripWithDeparture{
			trip:    trip,
			seconds: d.DepartureSeconds,
			display: trimToHHMM(d.DepartureTime),
		})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].seconds < ordered[j].seconds
	})

	itinerary := make([]models.BlockTrip, 0, len(ordered))
	for _, entry := range ordered {
		itinerary = append(itinerary, models.BlockTrip{
			TripID:        entry.trip.ID,
			RouteName:     routeShortName(entry.trip.RouteID),
			Headsign:      entry.trip.Headsign,
			DepartureTime: entry.display,
		})
	}
	return itinerary, nil
}

// routeShortName strips the agency suffix from a route id ("6-VIC" to "6").
func routeShortName(routeID string) string {
	if i := strings.Index(routeID, "-"); i >= 0 {
		return routeID[:i]
	}
	return routeID
}
