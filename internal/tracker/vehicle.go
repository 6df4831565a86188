package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"bctvictracker.ca/gtfsdb"
	"bctvictracker.ca/internal/gtfs"
	"bctvictracker.ca/internal/logging"
	"bctvictracker.ca/internal/models"
)

// futureStopDisplayLimit caps the upcoming-stop list unless the caller asks
// for the full trip.
const futureStopDisplayLimit = 6

// VehicleStatus answers "where/how is vehicle X right now" for a public bus
// number suffix. The returned state is always coherent: lookups that fail
// degrade to the best text the data supports, never to an error.
func (s *Service) VehicleStatus(ctx context.Context, busNumber string, snapshot *gtfs.Snapshot, showAllStops bool) models.VehicleStatus {
	vehicle, ok := snapshot.VehicleBySuffix(busNumber)
	if !ok {
		return models.VehicleStatus{
			State:         models.VehicleNotRunning,
			BusNumber:     busNumber,
			Description:   fmt.Sprintf("%s is not running at the moment", busNumber),
			NextStopText:  "Next Stop: Not Available",
			OccupancyText: "Occupancy Status: Not Available",
			SpeedText:     "Current Speed: Not Available",
		}
	}

	busID := displayBusID(vehicle.ID)
	status := models.VehicleStatus{
		BusNumber:     vehicle.BusNumber(),
		TripID:        vehicle.TripID,
		OccupancyText: occupancyText(vehicle.Occupancy),
		SpeedText:     speedText(vehicle.Speed),
		UpdatedText:   s.updatedText(vehicle.Timestamp),
		Position:      &models.Location{Lat: vehicle.Lat, Lon: vehicle.Lon},
		Bearing:       vehicle.Bearing,
	}

	updates := snapshot.UpdatesForTrip(vehicle.TripID)
	if len(updates) == 0 {
		return s.resolveOutOfService(ctx, busID, vehicle, status)
	}

	itinerary, err := s.blockItinerary(ctx, vehicle.TripID)
	if err != nil {
		logging.LogError(s.logger, "failed to build block itinerary", err,
			slog.String("trip_id", vehicle.TripID))
	}
	status.BlockTrips = itinerary

	current := currentStopUpdate(updates, vehicle.StopID)
	if current == nil {
		// The trip has live predictions but none for the vehicle's reported
		// stop, so its position on the trip is unknown.
		status.State = models.VehicleNotInService
		status.Description = fmt.Sprintf("%s is currently Not In Service", busNumber)
		status.NextStopText = "Next Stop: Not Available"
		return status
	}

	return s.resolveRunning(ctx, busID, vehicle, updates, current, status, showAllStops)
}

// resolveOutOfService classifies a vehicle with no live trip context: at a
// yard, heading to one, or repositioning for another route.
func (s *Service) resolveOutOfService(ctx context.Context, busID string, vehicle *gtfs.VehiclePosition, status models.VehicleStatus) models.VehicleStatus {
	stopID, hasStop := gtfsdb.NormalizeStopID(vehicle.StopID)

	switch {
	case hasStop && yardStopIDs[stopID]:
		status.State = models.VehicleReturningToYard
		status.Description = fmt.Sprintf("%s is currently returning back to a transit yard", busID)
		status.NextStopText = fmt.Sprintf("Next Stop: %s", s.stopName(ctx, stopID))
	case !hasStop:
		status.State = models.VehicleNotInService
		status.Description = fmt.Sprintf("%s is sitting at a transit yard", busID)
		status.NextStopText = "Next Stop: Not Available"
	default:
		status.State = models.VehicleDeadheading
		status.Description = fmt.Sprintf("%s is currently deadheading to run another route", busID)
		status.NextStopText = fmt.Sprintf("First Stop: %s", s.stopName(ctx, stopID))
	}
	return status
}

// resolveRunning fills in the delay, ETA, and upcoming-stop context for a
// vehicle actively serving a trip.
func (s *Service) resolveRunning(ctx context.Context, busID string, vehicle *gtfs.VehiclePosition, updates []gtfs.TripStopUpdate, current *gtfs.TripStopUpdate, status models.VehicleStatus, showAllStops bool) models.VehicleStatus {
	routeNumber := routeShortName(vehicle.RouteID)
	headsign := ""
	if trip, err := s.queries.GetTrip(ctx, vehicle.TripID); err == nil {
		routeNumber = routeShortName(trip.RouteID)
		headsign = trip.Headsign
	}

	delayMinutes := delayToMinutes(current.DelaySeconds)
	eta := s.etaForUpdate(current)
	currentStopName := s.stopNameForFeedID(ctx, current.StopID)

	status.State = models.VehicleRunning
	status.RouteShortName = routeNumber
	status.Headsign = headsign
	status.DelayMinutes = int(delayMinutes)
	status.Description = describeRunning(busID, routeNumber, headsign, delayMinutes, current.StopSequence, current.StartTime)

	if vehicle.Speed > 0 {
		status.NextStopText = fmt.Sprintf("Next Stop: %s (ETA: %s)", currentStopName, eta)
	} else {
		status.NextStopText = fmt.Sprintf("Current Stop: %s", currentStopName)
	}

	status.FutureStops = s.futureStops(ctx, updates, current.StopSequence, showAllStops)
	return status
}

// futureStops lists the stops still to be served on the current trip, the
// current stop included, each with its normalized ETA.
func (s *Service) futureStops(ctx context.Context, updates []gtfs.TripStopUpdate, currentSequence int64, showAll bool) []models.FutureStopETA {
	var stops []models.FutureStopETA
	for i := range updates {
		u := &updates[i]
		if u.StopSequence < currentSequence {
			continue
		}
		stopID, ok := gtfsdb.NormalizeStopID(u.StopID)
		if !ok {
			continue
		}
		stops = append(stops, models.FutureStopETA{
			StopID:   stopID,
			StopName: s.stopName(ctx, stopID),
			ETA:      s.etaForUpdate(u),
		})
		if !showAll && len(stops) == futureStopDisplayLimit {
			break
		}
	}
	return stops
}

// currentStopUpdate finds the trip-update entry for the vehicle's reported
// stop. Both ids come from the realtime feeds and compare as strings.
func currentStopUpdate(updates []gtfs.TripStopUpdate, stopID string) *gtfs.TripStopUpdate {
	if stopID == "" {
		return nil
	}
	for i := range updates {
		if updates[i].StopID == stopID {
			return &updates[i]
		}
	}
	return nil
}

// stopName resolves a static stop name, degrading to the numeric id when the
// stop is absent from the schedule.
func (s *Service) stopName(ctx context.Context, stopID int64) string {
	stop, err := s.queries.GetStop(ctx, stopID)
	if err != nil {
		return strconv.FormatInt(stopID, 10)
	}
	return stop.Name
}

func (s *Service) stopNameForFeedID(ctx context.Context, rawStopID string) string {
	stopID, ok := gtfsdb.NormalizeStopID(rawStopID)
	if !ok {
		return rawStopID
	}
	return s.stopName(ctx, stopID)
}

// displayBusID is the id form shown to riders, the fleet id with its static
// agency prefix removed.
func displayBusID(vehicleID string) string {
	if len(vehicleID) > 6 {
		return vehicleID[6:]
	}
	return vehicleID
}
