// Package models defines the presentation-facing result types produced by the
// tracking engine: vehicle status reports, arrival rows, and the dropdown
// option lists, all composed of plain display strings and coordinates.
package models

// Location is a latitude/longitude pair in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// VehicleState is the explicit state machine for a tracked vehicle.
type VehicleState int

const (
	// VehicleNotRunning means no live record matched the requested bus number.
	VehicleNotRunning VehicleState = iota
	// VehicleNotInService means the vehicle reports no upcoming stop and no
	// live trip context: it is sitting at a transit yard.
	VehicleNotInService
	// VehicleDeadheading means the vehicle is moving without serving its
	// published trip, repositioning to run another route.
	VehicleDeadheading
	// VehicleReturningToYard means the vehicle's next stop is one of the
	// transit yard stop codes.
	VehicleReturningToYard
	// VehicleRunning means the vehicle is serving a live trip with
	// trip-update context attached.
	VehicleRunning
)

func (s VehicleState) String() string {
	switch s {
	case VehicleNotInService:
		return "not_in_service"
	case VehicleDeadheading:
		return "deadheading"
	case VehicleReturningToYard:
		return "returning_to_yard"
	case VehicleRunning:
		return "running"
	default:
		return "not_running"
	}
}

// MarshalText makes the state render as its name in JSON responses.
func (s VehicleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name back into a VehicleState.
func (s *VehicleState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "not_in_service":
		*s = VehicleNotInService
	case "deadheading":
		*s = VehicleDeadheading
	case "returning_to_yard":
		*s = VehicleReturningToYard
	case "running":
		*s = VehicleRunning
	default:
		*s = VehicleNotRunning
	}
	return nil
}

// FutureStopETA is one upcoming stop on a tracked vehicle's current trip.
type FutureStopETA struct {
	StopID   int64  `json:"stopId"`
	StopName string `json:"stopName"`
	ETA      string `json:"eta"`
}

// BlockTrip is one trip in a vehicle's operating block, rider-facing.
type BlockTrip struct {
	TripID        string `json:"tripId"`
	RouteName     string `json:"routeName"`
	Headsign      string `json:"headsign"`
	DepartureTime string `json:"departureTime"`
}

// VehicleStatus is the full answer to "where/how is vehicle X right now".
// Description, NextStopText, OccupancyText, SpeedText and UpdatedText carry
// the exact rider-facing sentences; the structured fields back them up for
// the map display.
type VehicleStatus struct {
	State       VehicleState `json:"state"`
	BusNumber   string       `json:"busNumber"`
	Description string       `json:"description"`

	NextStopText  string `json:"nextStopText"`
	OccupancyText string `json:"occupancyText"`
	SpeedText     string `json:"speedText"`
	UpdatedText   string `json:"updatedText,omitempty"`

	RouteShortName string `json:"routeShortName,omitempty"`
	Headsign       string `json:"headsign,omitempty"`
	TripID         string `json:"tripId,omitempty"`
	DelayMinutes   int    `json:"delayMinutes"`

	Position    *Location       `json:"position,omitempty"`
	Bearing     float64         `json:"bearing,omitempty"`
	FutureStops []FutureStopETA `json:"futureStops,omitempty"`
	BlockTrips  []BlockTrip     `json:"blockTrips,omitempty"`
}

// ArrivalRow is one row of the next-arrivals table for a stop.
type ArrivalRow struct {
	ArrivalTime string `json:"arrivalTime"`
	Headsign    string `json:"headsign"`
	Bus         string `json:"bus"`
	Scheduled   bool   `json:"scheduled"`
}

// StopArrivals is the full answer to "what are the next N arrivals at stop Y".
type StopArrivals struct {
	StopID           int64        `json:"stopId"`
	StopName         string       `json:"stopName"`
	RouteFilter      string       `json:"routeFilter,omitempty"`
	Rows             []ArrivalRow `json:"rows"`
	VehiclePositions []Location   `json:"vehiclePositions"`
}

// StopOption is one entry of the stop dropdown.
type StopOption struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// RouteOption is one entry of the route dropdown.
type RouteOption struct {
	ShortName string `json:"shortName"`
	Label     string `json:"label"`
}
