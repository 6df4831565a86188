package tracker

import (
	"fmt"
	"time"

	"bctvictracker.ca/internal/gtfs"
)

// floorDiv divides toward negative infinity. Delay conversion must floor, not
// truncate: a bus 90 seconds early is 2 minutes early, not 1.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func delayToMinutes(delaySeconds int64) int64 {
	return floorDiv(delaySeconds, 60)
}

// trimToHHMM drops the seconds from a GTFS HH:MM:SS time-of-day string.
func trimToHHMM(gtfsTime string) string {
	if len(gtfsTime) >= 5 {
		return gtfsTime[:5]
	}
	return gtfsTime
}

// localHHMM renders a Unix timestamp as HH:MM in the agency time zone.
func (s *Service) localHHMM(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).In(s.loc).Format("15:04")
}

// etaForUpdate is the single authoritative ETA rule. A zero predicted time
// means the trip has not started yet and the feed only knows the scheduled
// start, so the trip's start time stands in; otherwise the predicted Unix
// time converts to local HH:MM.
func (s *Service) etaForUpdate(u *gtfs.TripStopUpdate) string {
	if u.PredictedTime == 0 {
		if u.StartTime == "" {
			return ""
		}
		return trimToHHMM(u.StartTime)
	}
	return s.localHHMM(u.PredictedTime)
}

// describeRunning builds the headline sentence for a vehicle serving a trip.
func describeRunning(busID, routeNumber, headsign string, delayMinutes, stopSequence int64, startTime string) string {
	if delayMinutes == 0 {
		if stopSequence == 1 {
			return fmt.Sprintf("%s will be running the %s %s departing at %s",
				busID, routeNumber, headsign, trimToHHMM(startTime))
		}
		return fmt.Sprintf("%s is currently on schedule running the %s %s", busID, routeNumber, headsign)
	}

	qualifier := "late"
	magnitude := delayMinutes
	if delayMinutes < 0 {
		qualifier = "early"
		magnitude = -delayMinutes
	}

	unit := "minutes"
	if magnitude == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("%s is currently %d %s %s running the %s %s",
		busID, magnitude, unit, qualifier, routeNumber, headsign)
}

func occupancyText(code int) string {
	switch code {
	case 0:
		return "Occupancy Status: Empty"
	case 1:
		return "Occupancy Status: Many Seats Available"
	case 2:
		return "Occupancy Status: Some Seats Available"
	case 3:
		return "Occupancy Status: Standing Room Only"
	default:
		return "Occupancy Status: Full"
	}
}

// speedText renders a feed speed (meters per second) as km/h.
func speedText(metersPerSecond float64) string {
	kmh := metersPerSecond * 3.6
	if kmh > 0 {
		return fmt.Sprintf("Current Speed: %.1f km/h", kmh)
	}
	return "Current Speed: 0 km/h"
}

// updatedText renders a feed capture timestamp (UTC ISO-8601) as a local
// "Updated at HH:MM:SS" line. Unparseable timestamps yield an empty string.
func (s *Service) updatedText(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Updated at %s", t.In(s.loc).Format("15:04:05"))
}
