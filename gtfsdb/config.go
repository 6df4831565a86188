package gtfsdb

import (
	"bctvictracker.ca/internal/appconf"
)

// Config holds configuration for the schedule database client.
type Config struct {
	DBPath  string
	Env     appconf.Environment
	verbose bool
}

// NewConfig creates a new Config with the given database path, environment,
// and verbosity.
func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}
}
