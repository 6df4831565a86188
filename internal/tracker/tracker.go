// Package tracker is the correlation engine between the static schedule and
// the live realtime snapshot. It answers the two rider-facing questions:
// where is a specific bus right now, and which buses arrive next at a stop.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bctvictracker.ca/gtfsdb"
	"bctvictracker.ca/internal/clock"
)

// The agency runs a single Pacific-time feed.
const agencyTimezone = "America/Los_Angeles"

// Yard stop codes. A vehicle reporting one of these as its next stop is
// returning to a transit yard, not serving riders.
var yardStopIDs = map[int64]bool{
	900000: true,
	930000: true,
}

// ErrNoStopSelected is returned when an arrivals query carries no stop id.
// It prompts for input rather than reporting a failure.
var ErrNoStopSelected = errors.New("no stop selected")

// UnknownStopError is returned when a stop id does not appear in the static
// schedule. The message is shown to the rider as-is.
type UnknownStopError struct {
	StopID string
}

func (e *UnknownStopError) Error() string {
	return fmt.Sprintf("%s is not a valid Stop Number", e.StopID)
}

// Service resolves tracking queries against the schedule database and a
// realtime snapshot supplied per call. All methods are read-only; snapshots
// are immutable, so a Service is safe for concurrent use.
type Service struct {
	queries *gtfsdb.Queries
	clock   clock.Clock
	loc     *time.Location
	logger  *slog.Logger
}

func NewService(queries *gtfsdb.Queries, clk clock.Clock, logger *slog.Logger) (*Service, error) {
	loc, err := time.LoadLocation(agencyTimezone)
	if err != nil {
		return nil, fmt.Errorf("unable to load agency timezone: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		queries: queries,
		clock:   clk,
		loc:     loc,
		logger:  logger.With(slog.String("component", "tracker")),
	}, nil
}

// now returns the current instant in the agency's civil time zone.
func (s *Service) now() time.Time {
	return s.clock.Now().In(s.loc)
}

// serviceDayStart returns local midnight of the current service date.
// Schedule times are seconds past this instant and may exceed 24 hours.
func (s *Service) serviceDayStart() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}
