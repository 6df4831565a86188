package gtfs

import (
	"fmt"
	"time"

	gogtfs "github.com/OneBusAway/go-gtfs"
)

// flattenVehicles converts decoded GTFS-RT vehicle entities into the snapshot
// form. Vehicles without an id are dropped; everything else is best-effort.
func flattenVehicles(realtime *gogtfs.Realtime, fetchedAt time.Time) []VehiclePosition {
	vehicles := make([]VehiclePosition, 0, len(realtime.Vehicles))
	for i := range realtime.Vehicles {
		v := &realtime.Vehicles[i]
		if v.ID == nil || v.ID.ID == "" {
			continue
		}

		out := VehiclePosition{
			ID:        v.ID.ID,
			Timestamp: fetchedAt.UTC().Format(time.RFC3339),
		}
		if v.Timestamp != nil {
			out.Timestamp = v.Timestamp.UTC().Format(time.RFC3339)
		}
		if v.Position != nil {
			if v.Position.Latitude != nil {
				out.Lat = float64(*v.Position.Latitude)
			}
			if v.Position.Longitude != nil {
				out.Lon = float64(*v.Position.Longitude)
			}
			if v.Position.Speed != nil {
				out.Speed = float64(*v.Position.Speed)
			}
			if v.Position.Bearing != nil {
				out.Bearing = float64(*v.Position.Bearing)
			}
		}
		if v.Trip != nil {
			out.TripID = v.Trip.ID.ID
			out.RouteID = v.Trip.ID.RouteID
		}
		if v.StopID != nil {
			out.StopID = *v.StopID
		}
		if v.OccupancyStatus != nil {
			out.Occupancy = int(*v.OccupancyStatus)
		}

		vehicles = append(vehicles, out)
	}
	return vehicles
}

// flattenTripUpdates converts decoded GTFS-RT trip entities into one entry
// per (trip, stop) pair still to be served.
//
// The feed is inconsistent about where the authoritative delay lives: the
// first stop of a not-yet-departed trip carries it on the departure event,
// later stops on the arrival event. The rule applied here, once, at flatten
// time: stop_sequence == 1 reads departure delay, every other entry reads
// arrival delay.
func flattenTripUpdates(realtime *gogtfs.Realtime) []TripStopUpdate {
	var updates []TripStopUpdate
	for i := range realtime.Trips {
		trip := &realtime.Trips[i]
		if len(trip.StopTimeUpdates) == 0 {
			continue
		}

		startTime := ""
		if trip.ID.HasStartTime {
			startTime = formatStartTime(trip.ID.StartTime)
		}

		for j := range trip.StopTimeUpdates {
			stu := &trip.StopTimeUpdates[j]

			out := TripStopUpdate{
				TripID:    trip.ID.ID,
				RouteID:   trip.ID.RouteID,
				StartTime: startTime,
			}
			if stu.StopID != nil {
				out.StopID = *stu.StopID
			}
			if stu.StopSequence != nil {
				out.StopSequence = int64(*stu.StopSequence)
			}
			if stu.Arrival != nil && stu.Arrival.Time != nil {
				out.PredictedTime = stu.Arrival.Time.Unix()
			}

			if out.StopSequence == 1 {
				if stu.Departure != nil && stu.Departure.Delay != nil {
					out.DelaySeconds = int64(stu.Departure.Delay.Seconds())
				}
			} else if stu.Arrival != nil && stu.Arrival.Delay != nil {
				out.DelaySeconds = int64(stu.Arrival.Delay.Seconds())
			}

			updates = append(updates, out)
		}
	}
	return updates
}

// formatStartTime renders a trip start time-of-day as HH:MM:SS, keeping
// post-midnight hours above 24 intact.
func formatStartTime(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
