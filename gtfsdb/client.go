// Package gtfsdb stores the static GTFS schedule (stops, routes, trips,
// stop times, calendar dates) in a local SQLite database and exposes the
// queries the tracker needs to correlate realtime data against the schedule.
package gtfsdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"
	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver

	"bctvictracker.ca/internal/appconf"
	"bctvictracker.ca/internal/logging"
)

//go:embed schema.sql
var ddl string

// Client is the main entry point for the schedule database.
type Client struct {
	config        Config
	DB            *sql.DB
	Queries       *Queries
	importRuntime time.Duration
}

// NewClient creates a new Client with the provided configuration.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}

// createDB creates a new SQLite database with tables for static GTFS data.
func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := configureSQLitePerformance(ctx, db); err != nil {
		return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
	}

	if err := performDatabaseMigration(ctx, db); err != nil {
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	configureConnectionPool(db, config)

	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate")
	for _, stmt := range statements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmedStmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmedStmt, err)
		}
	}
	return nil
}

func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -20000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("error executing %q: %w", pragma, err)
		}
	}
	return nil
}

func configureConnectionPool(db *sql.DB, config Config) {
	// In-memory databases share a single connection; pooling would give each
	// connection its own empty database.
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		return
	}
	db.SetMaxOpenConns(runtime.NumCPU())
	db.SetMaxIdleConns(runtime.NumCPU())
	db.SetConnMaxIdleTime(5 * time.Minute)
}

// DownloadAndStore downloads a GTFS static zip from the given URL and imports
// it into the database.
func (c *Client) DownloadAndStore(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download GTFS data: received HTTP status %s", resp.Status)
	}

	const maxBodySize = 200 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > maxBodySize {
		return fmt.Errorf("static GTFS response exceeds size limit of %d bytes", maxBodySize)
	}

	return c.importFromZipBytes(ctx, body, url)
}

// ImportFromZip imports GTFS data from a local zip file into the database.
func (c *Client) ImportFromZip(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.importFromZipBytes(ctx, data, path)
}

func (c *Client) importFromZipBytes(ctx context.Context, b []byte, source string) error {
	logger := slog.Default().With(slog.String("component", "gtfs_importer"))

	startTime := time.Now()
	defer func() {
		c.importRuntime = time.Since(startTime)
		logging.LogOperation(logger, "gtfs_data_import_completed",
			slog.Duration("duration", c.importRuntime),
			slog.String("source", source))
	}()

	unchanged, err := c.checkImportMetadata(ctx, b, source, logger)
	if err != nil {
		return err
	}
	if unchanged {
		return nil
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return fmt.Errorf("error parsing GTFS static data: %w", err)
	}

	if err := c.storeStaticData(ctx, staticData); err != nil {
		return err
	}

	return c.writeImportMetadata(ctx, b, source)
}

// checkImportMetadata reports whether the data has already been imported.
// When the hash differs from the recorded one, all existing GTFS rows are
// cleared so the new data can be imported from scratch.
func (c *Client) checkImportMetadata(ctx context.Context, b []byte, source string, logger *slog.Logger) (unchanged bool, err error) {
	hashStr := contentHash(b)

	existing, err := c.Queries.GetImportMetadata(ctx)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking import metadata: %w", err)
	}

	if existing.FileHash == hashStr && existing.FileSource == source {
		logging.LogOperation(logger, "gtfs_data_unchanged_skipping_import",
			slog.String("hash", hashStr[:8]))
		return true, nil
	}

	logging.LogOperation(logger, "gtfs_data_changed_reimporting",
		slog.String("old_hash", existing.FileHash[:8]),
		slog.String("new_hash", hashStr[:8]))
	if err := c.clearAllGTFSData(ctx); err != nil {
		return false, fmt.Errorf("error clearing existing GTFS data: %w", err)
	}
	return false, nil
}

func (c *Client) writeImportMetadata(ctx context.Context, b []byte, source string) error {
	_, err := c.DB.ExecContext(ctx, `
		INSERT INTO import_metadata (id, file_hash, file_source, imported_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			file_hash = excluded.file_hash,
			file_source = excluded.file_source,
			imported_at = excluded.imported_at`,
		contentHash(b), source, time.Now().UTC().Format(time.RFC3339))
	return err
}

func contentHash(b []byte) string {
	hash := sha256.Sum256(b)
	return hex.EncodeToString(hash[:])
}

func (c *Client) clearAllGTFSData(ctx context.Context) error {
	tables := []string{"stops", "routes", "trips", "stop_times", "calendar_dates", "shapes"}
	for _, table := range tables {
		if _, err := c.DB.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing table %s: %w", table, err)
		}
	}
	return nil
}

// storeStaticData writes a parsed GTFS static feed into the database.
func (c *Client) storeStaticData(ctx context.Context, staticData *gtfs.Static) error {
	if err := c.bulkInsertStops(ctx, staticData.Stops); err != nil {
		return fmt.Errorf("error inserting stops: %w", err)
	}
	if err := c.bulkInsertRoutes(ctx, staticData.Routes); err != nil {
		return fmt.Errorf("error inserting routes: %w", err)
	}
	if err := c.bulkInsertTrips(ctx, staticData.Trips); err != nil {
		return fmt.Errorf("error inserting trips: %w", err)
	}
	if err := c.bulkInsertCalendarDates(ctx, staticData.Services); err != nil {
		return fmt.Errorf("error inserting calendar dates: %w", err)
	}
	if err := c.bulkInsertShapes(ctx, staticData.Shapes); err != nil {
		return fmt.Errorf("error inserting shapes: %w", err)
	}
	return nil
}
