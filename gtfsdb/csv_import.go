package gtfsdb

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"bctvictracker.ca/internal/logging"
)

// ImportFromDir imports GTFS data from a directory of extracted CSV tables
// (stops, routes, trips, calendar_dates, stop_times, shapes). The stop_times
// table may be sharded across multiple stop_times_part_*.csv chunk files, as
// produced by the batch publish workflow; chunks are streamed row-by-row so
// peak memory stays bounded regardless of table size.
//
// A missing table is not an error: the corresponding database table is simply
// left empty and callers see empty query results.
func (c *Client) ImportFromDir(ctx context.Context, dir string) error {
	logger := slog.Default().With(slog.String("component", "gtfs_csv_importer"))

	startTime := time.Now()
	defer func() {
		c.importRuntime = time.Since(startTime)
		logging.LogOperation(logger, "gtfs_csv_import_completed",
			slog.Duration("duration", c.importRuntime),
			slog.String("dir", dir))
	}()

	if err := c.importStopsCSV(ctx, dir); err != nil {
		return fmt.Errorf("error importing stops: %w", err)
	}
	if err := c.importRoutesCSV(ctx, dir); err != nil {
		return fmt.Errorf("error importing routes: %w", err)
	}
	if err := c.importTripsCSV(ctx, dir); err != nil {
		return fmt.Errorf("error importing trips: %w", err)
	}
	if err := c.importCalendarDatesCSV(ctx, dir); err != nil {
		return fmt.Errorf("error importing calendar dates: %w", err)
	}
	if err := c.importStopTimesCSV(ctx, dir); err != nil {
		return fmt.Errorf("error importing stop times: %w", err)
	}
	if err := c.importShapesCSV(ctx, dir); err != nil {
		return fmt.Errorf("error importing shapes: %w", err)
	}
	return nil
}

// tableFile locates a table in dir, trying the .csv name used by the batch
// workflow first and the GTFS .txt name second. Returns "" when neither
// exists.
func tableFile(dir, table string) string {
	for _, name := range []string{table + ".csv", table + ".txt"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// stopTimesFiles returns the stop_times sources in deterministic order:
// sharded chunk files when present, otherwise the single table file.
func stopTimesFiles(dir string) []string {
	chunks, _ := filepath.Glob(filepath.Join(dir, "stop_times_part_*.csv"))
	if len(chunks) > 0 {
		sort.Strings(chunks)
		return chunks
	}
	if path := tableFile(dir, "stop_times"); path != "" {
		return []string{path}
	}
	return nil
}

// forEachCSVRow streams the rows of a CSV file, giving fn a lookup from
// column name to value. Rows shorter than the header are skipped.
func forEachCSVRow(path string, fn func(get func(col string) string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		if err := fn(get); err != nil {
			return err
		}
	}
}

func (c *Client) importStopsCSV(ctx context.Context, dir string) error {
	path := tableFile(dir, "stops")
	if path == "" {
		return nil
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO stops (id, name, lat, lon) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		return forEachCSVRow(path, func(get func(string) string) error {
			id, ok := NormalizeStopID(get("stop_id"))
			if !ok {
				return nil
			}
			lat, _ := strconv.ParseFloat(get("stop_lat"), 64)
			lon, _ := strconv.ParseFloat(get("stop_lon"), 64)
			_, err := stmt.ExecContext(ctx, id, get("stop_name"), lat, lon)
			return err
		})
	})
}

func (c *Client) importRoutesCSV(ctx context.Context, dir string) error {
	path := tableFile(dir, "routes")
	if path == "" {
		return nil
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO routes (id, agency_id, short_name, long_name) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		return forEachCSVRow(path, func(get func(string) string) error {
			if get("route_id") == "" {
				return nil
			}
			_, err := stmt.ExecContext(ctx,
				get("route_id"), get("agency_id"), get("route_short_name"), get("route_long_name"))
			return err
		})
	})
}

func (c *Client) importTripsCSV(ctx context.Context, dir string) error {
	path := tableFile(dir, "trips")
	if path == "" {
		return nil
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO trips (id, route_id, service_id, block_id, headsign, shape_id) VALUES (?, ?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		return forEachCSVRow(path, func(get func(string) string) error {
			if get("trip_id") == "" {
				return nil
			}
			_, err := stmt.ExecContext(ctx,
				get("trip_id"), get("route_id"), get("service_id"),
				get("block_id"), get("trip_headsign"), get("shape_id"))
			return err
		})
	})
}

func (c *Client) importCalendarDatesCSV(ctx context.Context, dir string) error {
	path := tableFile(dir, "calendar_dates")
	if path == "" {
		return nil
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO calendar_dates (service_id, date, exception_type) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		return forEachCSVRow(path, func(get func(string) string) error {
			if get("service_id") == "" {
				return nil
			}
			exceptionType := int64(1)
			if v, err := strconv.ParseInt(get("exception_type"), 10, 64); err == nil {
				exceptionType = v
			}
			_, err := stmt.ExecContext(ctx, get("service_id"), get("date"), exceptionType)
			return err
		})
	})
}

func (c *Client) importStopTimesCSV(ctx context.Context, dir string) error {
	files := stopTimesFiles(dir)
	if len(files) == 0 {
		return nil
	}

	for _, path := range files {
		err := c.inTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT OR REPLACE INTO stop_times
					(trip_id, stop_sequence, stop_id, arrival_time, departure_time, arrival_seconds, departure_seconds)
				VALUES (?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return err
			}
			defer func() { _ = stmt.Close() }()

			return forEachCSVRow(path, func(get func(string) string) error {
				tripID := get("trip_id")
				if tripID == "" {
					return nil
				}
				stopID, ok := NormalizeStopID(get("stop_id"))
				if !ok {
					return nil
				}
				seq, err := strconv.ParseInt(get("stop_sequence"), 10, 64)
				if err != nil {
					return nil
				}

				arrival := get("arrival_time")
				departure := get("departure_time")
				arrivalSecs, _ := ParseGTFSTime(arrival)
				departureSecs, _ := ParseGTFSTime(departure)

				_, err = stmt.ExecContext(ctx,
					tripID, seq, stopID, arrival, departure, arrivalSecs, departureSecs)
				return err
			})
		})
		if err != nil {
			return fmt.Errorf("error importing %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func (c *Client) importShapesCSV(ctx context.Context, dir string) error {
	path := tableFile(dir, "shapes")
	if path == "" {
		return nil
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO shapes (shape_id, pt_sequence, lat, lon) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		return forEachCSVRow(path, func(get func(string) string) error {
			shapeID := get("shape_id")
			if shapeID == "" {
				return nil
			}
			seq, err := strconv.ParseInt(get("shape_pt_sequence"), 10, 64)
			if err != nil {
				return nil
			}
			lat, _ := strconv.ParseFloat(get("shape_pt_lat"), 64)
			lon, _ := strconv.ParseFloat(get("shape_pt_lon"), 64)
			_, err = stmt.ExecContext(ctx, shapeID, seq, lat, lon)
			return err
		})
	})
}
