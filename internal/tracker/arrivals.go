package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"bctvictracker.ca/gtfsdb"
	"bctvictracker.ca/internal/gtfs"
	"bctvictracker.ca/internal/models"
)

// Route variant letters. "6" expands to 6, 6A, 6B, 6N, 6X.
var routeVariantSuffixes = []string{"", "A", "B", "N", "X"}

// routeIDSuffix is the agency suffix every route id in the feed carries.
const routeIDSuffix = "-VIC"

// arrivalCandidate is one potential row: a trip due at the stop, with the
// best known arrival instant (live prediction when available, otherwise the
// schedule).
type arrivalCandidate struct {
	tripID   string
	routeID  string
	headsign string
	when     time.Time
	display  string
}

// StopArrivals merges today's scheduled arrivals at a stop with live
// trip-update predictions, applies the route filter and current-time cutoff,
// and resolves the serving bus for each surviving row.
func (s *Service) StopArrivals(ctx context.Context, rawStopID, routeFilter string, includeVariants bool, limit int, snapshot *gtfs.Snapshot) (models.StopArrivals, error) {
	if rawStopID == "" {
		return models.StopArrivals{}, ErrNoStopSelected
	}
	stopID, ok := gtfsdb.NormalizeStopID(rawStopID)
	if !ok {
		return models.StopArrivals{}, &UnknownStopError{StopID: rawStopID}
	}

	stop, err := s.queries.GetStop(ctx, stopID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StopArrivals{}, &UnknownStopError{StopID: strconv.FormatInt(stopID, 10)}
	}
	if err != nil {
		return models.StopArrivals{}, fmt.Errorf("error loading stop %d: %w", stopID, err)
	}

	now := s.now()
	dayStart := s.serviceDayStart()

	candidates, err := s.collectCandidates(ctx, stopID, dayStart, snapshot)
	if err != nil {
		return models.StopArrivals{}, err
	}

	allowed := allowedRouteIDs(routeFilter, includeVariants)
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.when.Before(now) {
			continue
		}
		if allowed != nil && !allowed[c.routeID] {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].when.Before(filtered[j].when)
	})
	if limit <= 0 {
		limit = 10
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	result := models.StopArrivals{
		StopID:      stopID,
		StopName:    stop.Name,
		RouteFilter: routeFilter,
		Rows:        make([]models.ArrivalRow, 0, len(filtered)),
	}

	for _, c := range filtered {
		vehicle, scheduled := s.findVehicleForTrip(ctx, c.tripID, snapshot)

		bus := "Unknown"
		if vehicle != nil {
			bus = vehicle.BusNumber()
			if scheduled {
				bus += " (Scheduled)"
			} else {
				result.VehiclePositions = append(result.VehiclePositions,
					models.Location{Lat: vehicle.Lat, Lon: vehicle.Lon})
			}
		}

		result.Rows = append(result.Rows, models.ArrivalRow{
			ArrivalTime: c.display,
			Headsign:    fmt.Sprintf("%s %s", routeShortName(c.routeID), c.headsign),
			Bus:         bus,
			Scheduled:   vehicle == nil || scheduled,
		})
	}
	return result, nil
}

// collectCandidates unions today's scheduled arrivals with the live
// prediction horizon. A live prediction overrides the scheduled time of its
// trip; live entries whose trips are absent from the static table entirely
// are kept best-effort so an added trip still shows up.
func (s *Service) collectCandidates(ctx context.Context, stopID int64, dayStart time.Time, snapshot *gtfs.Snapshot) ([]arrivalCandidate, error) {
	serviceIDs, err := s.queries.ServiceIDsForDate(ctx, dayStart.Format("20060102"))
	if err != nil {
		return nil, fmt.Errorf("error loading today's service ids: %w", err)
	}

	scheduled, err := s.queries.GetScheduledArrivalsForStop(ctx, stopID, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("error loading scheduled arrivals: %w", err)
	}

	activeServices := make(map[string]bool, len(serviceIDs))
	for _, id := range serviceIDs {
		activeServices[id] = true
	}

	feedStopID := strconv.FormatInt(stopID, 10)
	candidates := make([]arrivalCandidate, 0, len(scheduled))
	seen := make(map[string]bool, len(scheduled))

	for _, arrival := range scheduled {
		c := arrivalCandidate{
			tripID:   arrival.TripID,
			routeID:  arrival.RouteID,
			headsign: arrival.Headsign,
			when:     dayStart.Add(time.Duration(arrival.ArrivalSeconds) * time.Second),
			display:  trimToHHMM(arrival.ArrivalTime),
		}
		if update, ok := snapshot.UpdateForTripStop(arrival.TripID, feedStopID); ok {
			s.applyLivePrediction(&c, update, dayStart)
		}
		candidates = append(candidates, c)
		seen[arrival.TripID] = true
	}

	for i := range snapshot.TripUpdates {
		update := &snapshot.TripUpdates[i]
		if update.StopID != feedStopID || seen[update.TripID] {
			continue
		}
		c := arrivalCandidate{
			tripID:  update.TripID,
			routeID: update.RouteID,
		}
		if trip, err := s.queries.GetTrip(ctx, update.TripID); err == nil {
			// A known trip that is not scheduled today stays out, whatever
			// the feed claims. Trips absent from the static table entirely
			// are kept best-effort.
			if !activeServices[trip.ServiceID] {
				continue
			}
			c.routeID = trip.RouteID
			c.headsign = trip.Headsign
		}
		s.applyLivePrediction(&c, update, dayStart)
		if c.display == "" {
			continue
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// applyLivePrediction overrides a candidate's arrival with the live ETA,
// following the same zero-time rule as the normalizer: a zero predicted time
// on a not-yet-departed trip means the trip's start time.
func (s *Service) applyLivePrediction(c *arrivalCandidate, update *gtfs.TripStopUpdate, dayStart time.Time) {
	switch {
	case update.PredictedTime > 0:
		predicted := time.Unix(update.PredictedTime, 0).In(s.loc)
		c.when = predicted
		c.display = predicted.Format("15:04")
	case update.StartTime != "":
		if seconds, err := gtfsdb.ParseGTFSTime(update.StartTime); err == nil {
			c.when = dayStart.Add(time.Duration(seconds) * time.Second)
			c.display = trimToHHMM(update.StartTime)
		}
	}
}

// allowedRouteIDs expands a route short-name filter into the set of matching
// route ids, or nil when no filter applies.
func allowedRouteIDs(routeFilter string, includeVariants bool) map[string]bool {
	if routeFilter == "" {
		return nil
	}
	allowed := make(map[string]bool, len(routeVariantSuffixes))
	if includeVariants {
		for _, suffix := range routeVariantSuffixes {
			allowed[routeFilter+suffix+routeIDSuffix] = true
		}
	} else {
		allowed[routeFilter+routeIDSuffix] = true
	}
	return allowed
}
