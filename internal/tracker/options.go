package tracker

import (
	"context"
	"fmt"

	"bctvictracker.ca/internal/models"
)

// StopOptions lists every stop as a dropdown option labelled with its name
// and number.
func (s *Service) StopOptions(ctx context.Context) ([]models.StopOption, error) {
	stops, err := s.queries.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing stops: %w", err)
	}
	options := make([]models.StopOption, 0, len(stops))
	for _, stop := range stops {
		options = append(options, models.StopOption{
			ID:    stop.ID,
			Label: fmt.Sprintf("%s (Stop %d)", stop.Name, stop.ID),
		})
	}
	return options, nil
}

// RouteOptions lists every route as a dropdown option labelled with its
// short and long names.
func (s *Service) RouteOptions(ctx context.Context) ([]models.RouteOption, error) {
	routes, err := s.queries.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing routes: %w", err)
	}
	options := make([]models.RouteOption, 0, len(routes))
	for _, route := range routes {
		options = append(options, models.RouteOption{
			ShortName: route.ShortName,
			Label:     fmt.Sprintf("%s %s", route.ShortName, route.LongName),
		})
	}
	return options, nil
}
