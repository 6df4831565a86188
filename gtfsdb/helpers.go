package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"
)

// NormalizeStopID converts a stop id as reported by a feed (integer string,
// float-formatted string such as "100032.0", or plain number) into the
// integer domain used by the stops table. Returns false when the value cannot
// be interpreted as a stop id.
func NormalizeStopID(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	// Static tables are floating-point-compatible; vehicle feeds report
	// integer-like strings. Meet in the middle through float parsing.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

// ParseGTFSTime parses a GTFS time-of-day string (HH:MM:SS, hours may exceed
// 24 for post-midnight trips) into seconds since local midnight.
func ParseGTFSTime(s string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 && len(parts) != 2 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	var total int64
	for _, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid GTFS time %q", s)
		}
		total = total*60 + v
	}
	if len(parts) == 2 {
		total *= 60
	}
	return total, nil
}

// FormatGTFSTime renders seconds since midnight as HH:MM:SS, keeping hours
// above 24 intact (25:01:00 stays 25:01:00).
func FormatGTFSTime(seconds int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func durationToGTFSTime(d time.Duration) string {
	return FormatGTFSTime(int64(d / time.Second))
}

func (c *Client) bulkInsertStops(ctx context.Context, stops []gtfs.Stop) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO stops (id, name, lat, lon) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := range stops {
			stop := &stops[i]
			id, ok := NormalizeStopID(stop.Id)
			if !ok {
				continue
			}
			var lat, lon float64
			if stop.Latitude != nil {
				lat = *stop.Latitude
			}
			if stop.Longitude != nil {
				lon = *stop.Longitude
			}
			if _, err := stmt.ExecContext(ctx, id, stop.Name, lat, lon); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Client) bulkInsertRoutes(ctx context.Context, routes []gtfs.Route) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO routes (id, agency_id, short_name, long_name) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := range routes {
			route := &routes[i]
			agencyID := ""
			if route.Agency != nil {
				agencyID = route.Agency.Id
			}
			if _, err := stmt.ExecContext(ctx, route.Id, agencyID, route.ShortName, route.LongName); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Client) bulkInsertTrips(ctx context.Context, trips []gtfs.ScheduledTrip) error {
	if err := c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO trips (id, route_id, service_id, block_id, headsign, shape_id) VALUES (?, ?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := range trips {
			trip := &trips[i]
			routeID := ""
			if trip.Route != nil {
				routeID = trip.Route.Id
			}
			serviceID := ""
			if trip.Service != nil {
				serviceID = trip.Service.Id
			}
			shapeID := ""
			if trip.Shape != nil {
				shapeID = trip.Shape.ID
			}
			if _, err := stmt.ExecContext(ctx, trip.ID, routeID, serviceID, trip.BlockID, trip.Headsign, shapeID); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return c.bulkInsertScheduledStopTimes(ctx, trips)
}

func (c *Client) bulkInsertScheduledStopTimes(ctx context.Context, trips []gtfs.ScheduledTrip) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO stop_times
				(trip_id, stop_sequence, stop_id, arrival_time, departure_time, arrival_seconds, departure_seconds)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := range trips {
			trip := &trips[i]
			for j := range trip.StopTimes {
				st := &trip.StopTimes[j]
				var stopID int64
				if st.Stop != nil {
					id, ok := NormalizeStopID(st.Stop.Id)
					if !ok {
						continue
					}
					stopID = id
				}
				arrivalSecs := int64(st.ArrivalTime / time.Second)
				departureSecs := int64(st.DepartureTime / time.Second)
				if _, err := stmt.ExecContext(ctx,
					trip.ID, st.StopSequence, stopID,
					durationToGTFSTime(st.ArrivalTime), durationToGTFSTime(st.DepartureTime),
					arrivalSecs, departureSecs); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// bulkInsertCalendarDates flattens the explicit added dates of each service
// into calendar_dates rows. The BC Transit feed expresses its entire calendar
// through calendar_dates, so AddedDates carries every active day.
func (c *Client) bulkInsertCalendarDates(ctx context.Context, services []gtfs.Service) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO calendar_dates (service_id, date, exception_type) VALUES (?, ?, 1)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := range services {
			service := &services[i]
			for _, d := range service.AddedDates {
				if _, err := stmt.ExecContext(ctx, service.Id, d.Format("20060102")); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (c *Client) bulkInsertShapes(ctx context.Context, shapes []gtfs.Shape) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO shapes (shape_id, pt_sequence, lat, lon) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := range shapes {
			shape := &shapes[i]
			for j, pt := range shape.Points {
				if _, err := stmt.ExecContext(ctx, shape.ID, j, pt.Latitude, pt.Longitude); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (c *Client) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
