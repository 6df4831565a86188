package gtfsdb

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is the subset of *sql.DB / *sql.Tx the query layer needs.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New creates a Queries instance bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries provides typed access to the schedule tables.
type Queries struct {
	db DBTX
}

type Stop struct {
	ID   int64
	Name string
	Lat  float64
	Lon  float64
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
	BlockID   string
	Headsign  string
	ShapeID   string
}

type StopTime struct {
	TripID           string
	StopSequence     int64
	StopID           int64
	ArrivalTime      string
	DepartureTime    string
	ArrivalSeconds   int64
	DepartureSeconds int64
}

// FirstStopDeparture is the scheduled departure of a trip's first stop.
type FirstStopDeparture struct {
	TripID           string
	DepartureTime    string
	DepartureSeconds int64
}

// ScheduledArrival is one scheduled stop_times row at a stop joined with its
// trip's route and block context.
type ScheduledArrival struct {
	TripID         string
	RouteID        string
	Headsign       string
	BlockID        string
	ArrivalTime    string
	ArrivalSeconds int64
	StopSequence   int64
}

type ShapePoint struct {
	Lat float64
	Lon float64
}

type ImportMetadata struct {
	FileHash   string
	FileSource string
	ImportedAt string
}

func (q *Queries) GetStop(ctx context.Context, id int64) (Stop, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, name, lat, lon FROM stops WHERE id = ?", id)
	var s Stop
	err := row.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon)
	return s, err
}

func (q *Queries) ListStops(ctx context.Context) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, name, lat, lon FROM stops ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stops []Stop
	for rows.Next() {
		var s Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func (q *Queries) GetRoute(ctx context.Context, id string) (Route, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, agency_id, short_name, long_name FROM routes WHERE id = ?", id)
	var r Route
	err := row.Scan(&r.ID, &r.AgencyID, &r.ShortName, &r.LongName)
	return r, err
}

func (q *Queries) ListRoutes(ctx context.Context) ([]Route, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, agency_id, short_name, long_name FROM routes ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var routes []Route
	for rows.Next() {
		var r Route
		if err := rows.Scan(&r.ID, &r.AgencyID, &r.ShortName, &r.LongName); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

func (q *Queries) GetTrip(ctx context.Context, id string) (Trip, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, route_id, service_id, block_id, headsign, shape_id FROM trips WHERE id = ?", id)
	var t Trip
	err := row.Scan(&t.ID, &t.RouteID, &t.ServiceID, &t.BlockID, &t.Headsign, &t.ShapeID)
	return t, err
}

// ListTripsByBlockID returns every trip operating under the given block,
// in stable id order. Schedule order is established separately through the
// first-stop departure times.
func (q *Queries) ListTripsByBlockID(ctx context.Context, blockID string) ([]Trip, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, route_id, service_id, block_id, headsign, shape_id FROM trips WHERE block_id = ? ORDER BY id", blockID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.ServiceID, &t.BlockID, &t.Headsign, &t.ShapeID); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (q *Queries) GetStopTimesForTrip(ctx context.Context, tripID string) ([]StopTime, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT trip_id, stop_sequence, stop_id, arrival_time, departure_time, arrival_seconds, departure_seconds
		FROM stop_times WHERE trip_id = ? ORDER BY stop_sequence`, tripID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stopTimes []StopTime
	for rows.Next() {
		var st StopTime
		if err := rows.Scan(&st.TripID, &st.StopSequence, &st.StopID,
			&st.ArrivalTime, &st.DepartureTime, &st.ArrivalSeconds, &st.DepartureSeconds); err != nil {
			return nil, err
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, rows.Err()
}

// GetFirstStopDepartures returns the stop_sequence = 1 departure for each of
// the given trips. Trips without a first stop row are simply absent from the
// result.
func (q *Queries) GetFirstStopDepartures(ctx context.Context, tripIDs []string) ([]FirstStopDeparture, error) {
	if len(tripIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT trip_id, departure_time, departure_seconds
		FROM stop_times
		WHERE stop_sequence = 1 AND trip_id IN (` + placeholders(len(tripIDs)) + `)`
	rows, err := q.db.QueryContext(ctx, query, stringArgs(tripIDs)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var departures []FirstStopDeparture
	for rows.Next() {
		var d FirstStopDeparture
		if err := rows.Scan(&d.TripID, &d.DepartureTime, &d.DepartureSeconds); err != nil {
			return nil, err
		}
		departures = append(departures, d)
	}
	return departures, rows.Err()
}

// GetScheduledArrivalsForStop returns every scheduled arrival at the stop for
// trips whose service id is active, ordered by arrival time.
func (q *Queries) GetScheduledArrivalsForStop(ctx context.Context, stopID int64, serviceIDs []string) ([]ScheduledArrival, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT st.trip_id, t.route_id, t.headsign, t.block_id, st.arrival_time, st.arrival_seconds, st.stop_sequence
		FROM stop_times st
		JOIN trips t ON t.id = st.trip_id
		WHERE st.stop_id = ? AND t.service_id IN (` + placeholders(len(serviceIDs)) + `)
		ORDER BY st.arrival_seconds`
	args := append([]interface{}{stopID}, stringArgs(serviceIDs)...)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var arrivals []ScheduledArrival
	for rows.Next() {
		var a ScheduledArrival
		if err := rows.Scan(&a.TripID, &a.RouteID, &a.Headsign, &a.BlockID,
			&a.ArrivalTime, &a.ArrivalSeconds, &a.StopSequence); err != nil {
			return nil, err
		}
		arrivals = append(arrivals, a)
	}
	return arrivals, rows.Err()
}

// ServiceIDsForDate returns the service ids active on the given date
// (YYYYMMDD), i.e. the calendar_dates rows added for that day.
func (q *Queries) ServiceIDsForDate(ctx context.Context, date string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT service_id FROM calendar_dates WHERE date = ? AND exception_type = 1", date)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var serviceIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		serviceIDs = append(serviceIDs, id)
	}
	return serviceIDs, rows.Err()
}

func (q *Queries) GetShapePoints(ctx context.Context, shapeID string) ([]ShapePoint, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT lat, lon FROM shapes WHERE shape_id = ? ORDER BY pt_sequence", shapeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var points []ShapePoint
	for rows.Next() {
		var p ShapePoint
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (q *Queries) GetImportMetadata(ctx context.Context) (ImportMetadata, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT file_hash, file_source, imported_at FROM import_metadata WHERE id = 1")
	var m ImportMetadata
	err := row.Scan(&m.FileHash, &m.FileSource, &m.ImportedAt)
	return m, err
}

func (q *Queries) CountStops(ctx context.Context) (int64, error) {
	return q.count(ctx, "stops")
}

func (q *Queries) CountTrips(ctx context.Context) (int64, error) {
	return q.count(ctx, "trips")
}

func (q *Queries) CountStopTimes(ctx context.Context) (int64, error) {
	return q.count(ctx, "stop_times")
}

func (q *Queries) count(ctx context.Context, table string) (int64, error) {
	row := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table)
	var n int64
	err := row.Scan(&n)
	return n, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
