package gtfs

import (
	"strings"
	"time"
)

// VehiclePosition is one live vehicle record, flattened from the GTFS-RT
// vehicle positions feed. The JSON tags match the bus_updates.json snapshot
// format written by the batch publish workflow.
type VehiclePosition struct {
	ID        string  `json:"id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Speed     float64 `json:"speed"` // meters per second
	RouteID   string  `json:"route"`
	Occupancy int     `json:"capacity"`
	TripID    string  `json:"trip_id"`
	StopID    string  `json:"stop_id"`
	Bearing   float64 `json:"bearing"`
	Timestamp string  `json:"timestamp"` // UTC ISO-8601
}

// BusNumber returns the public bus number, the trailing four digits of the
// vehicle id.
func (v VehiclePosition) BusNumber() string {
	if len(v.ID) <= 4 {
		return v.ID
	}
	return v.ID[len(v.ID)-4:]
}

// TripStopUpdate is one live prediction for a (trip, stop) pair still to be
// served, flattened from the GTFS-RT trip updates feed. The JSON tags match
// the trip_updates.json snapshot format.
type TripStopUpdate struct {
	TripID        string `json:"trip_id"`
	RouteID       string `json:"route_id"`
	StartTime     string `json:"start_time"`
	StopID        string `json:"stop_id"`
	DelaySeconds  int64  `json:"delay"`
	StopSequence  int64  `json:"stop_sequence"`
	PredictedTime int64  `json:"time"` // Unix seconds; 0 when the feed has no prediction
}

type tripStopKey struct {
	tripID string
	stopID string
}

// Snapshot is one immutable refresh cycle's worth of realtime data. It is
// replaced wholesale on each successful refresh and never mutated, so readers
// may hold a reference across a concurrent refresh without locking.
type Snapshot struct {
	Vehicles    []VehiclePosition
	TripUpdates []TripStopUpdate
	FetchedAt   time.Time

	vehicleByTrip map[string]int
	vehicleByID   map[string]int
	updatesByTrip map[string][]int
	updateByStop  map[tripStopKey]int
}

// NewSnapshot builds a snapshot and its lookup indexes. Indexes are built
// once per refresh rather than per query so aggregator cost stays independent
// of feed size.
func NewSnapshot(vehicles []VehiclePosition, updates []TripStopUpdate, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		Vehicles:    vehicles,
		TripUpdates: updates,
		FetchedAt:   fetchedAt,

		vehicleByTrip: make(map[string]int, len(vehicles)),
		vehicleByID:   make(map[string]int, len(vehicles)),
		updatesByTrip: make(map[string][]int, len(updates)),
		updateByStop:  make(map[tripStopKey]int, len(updates)),
	}

	for i := range vehicles {
		v := &vehicles[i]
		if v.ID == "" {
			continue
		}
		s.vehicleByID[v.ID] = i
		if v.TripID != "" {
			s.vehicleByTrip[v.TripID] = i
		}
	}

	for i := range updates {
		u := &updates[i]
		s.updatesByTrip[u.TripID] = append(s.updatesByTrip[u.TripID], i)
		key := tripStopKey{tripID: u.TripID, stopID: u.StopID}
		if _, exists := s.updateByStop[key]; !exists {
			s.updateByStop[key] = i
		}
	}

	return s
}

func emptySnapshot() *Snapshot {
	return NewSnapshot(nil, nil, time.Time{})
}

// VehicleForTrip returns the live vehicle currently assigned to the trip.
func (s *Snapshot) VehicleForTrip(tripID string) (*VehiclePosition, bool) {
	i, ok := s.vehicleByTrip[tripID]
	if !ok {
		return nil, false
	}
	return &s.Vehicles[i], true
}

// VehicleBySuffix returns the first vehicle whose id ends with the given
// suffix. Suffix matching follows the public convention that riders know a
// bus by the trailing digits of its fleet id.
func (s *Snapshot) VehicleBySuffix(suffix string) (*VehiclePosition, bool) {
	if suffix == "" {
		return nil, false
	}
	for i := range s.Vehicles {
		if strings.HasSuffix(s.Vehicles[i].ID, suffix) {
			return &s.Vehicles[i], true
		}
	}
	return nil, false
}

// UpdatesForTrip returns the per-stop predictions for the trip, in feed order.
func (s *Snapshot) UpdatesForTrip(tripID string) []TripStopUpdate {
	indexes := s.updatesByTrip[tripID]
	if len(indexes) == 0 {
		return nil
	}
	updates := make([]TripStopUpdate, 0, len(indexes))
	for _, i := range indexes {
		updates = append(updates, s.TripUpdates[i])
	}
	return updates
}

// UpdateForTripStop returns the prediction for a specific (trip, stop) pair.
func (s *Snapshot) UpdateForTripStop(tripID, stopID string) (*TripStopUpdate, bool) {
	i, ok := s.updateByStop[tripStopKey{tripID: tripID, stopID: stopID}]
	if !ok {
		return nil, false
	}
	return &s.TripUpdates[i], true
}
