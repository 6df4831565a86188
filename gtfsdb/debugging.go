package gtfsdb

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"bctvictracker.ca/internal/logging"
)

func PrintSimpleSchema(db *sql.DB) error { // nolint:unused
	rows, err := db.Query(`
		SELECT type, name, sql
		FROM sqlite_master
		WHERE type IN ('table', 'index', 'view', 'trigger')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY type, name
	`)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "debugging")),
		"database_rows")

	log.Println("DATABASE SCHEMA:")
	log.Println("----------------")

	for rows.Next() {
		var objType, objName, objSQL string
		if err := rows.Scan(&objType, &objName, &objSQL); err != nil {
			return err
		}
		log.Printf("%s: %s\n", strings.ToUpper(objType), objName)
		log.Printf("%s\n\n", objSQL)
	}

	return rows.Err()
}

// TableCounts returns row counts for the main schedule tables, for the debug
// endpoint and verbose startup logging.
func (c *Client) TableCounts(ctx context.Context) map[string]int64 {
	counts := map[string]int64{}
	for table, count := range map[string]func(context.Context) (int64, error){
		"stops":      c.Queries.CountStops,
		"trips":      c.Queries.CountTrips,
		"stop_times": c.Queries.CountStopTimes,
	} {
		n, err := count(ctx)
		if err != nil {
			continue
		}
		counts[table] = n
	}
	return counts
}

// DumpCounts renders the table counts with spew for the debug page.
func (c *Client) DumpCounts(ctx context.Context) string {
	return spew.Sdump(c.TableCounts(ctx))
}
