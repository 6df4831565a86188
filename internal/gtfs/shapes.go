package gtfs

import (
	"context"
	"fmt"

	"github.com/twpayne/go-polyline"
)

// TripShape is the path a trip follows, encoded with the Google polyline
// algorithm so map clients can draw it without a point-per-row payload.
type TripShape struct {
	TripID   string `json:"trip_id"`
	ShapeID  string `json:"shape_id"`
	Encoded  string `json:"polyline"`
	NumPoint int    `json:"num_points"`
}

// TripShape returns the encoded shape for a trip. Trips without a shape
// return an empty polyline rather than an error; the schedule data for some
// routes simply carries none.
func (manager *Manager) TripShape(ctx context.Context, tripID string) (TripShape, error) {
	trip, err := manager.GtfsDB.Queries.GetTrip(ctx, tripID)
	if err != nil {
		return TripShape{}, fmt.Errorf("unknown trip %q: %w", tripID, err)
	}

	shape := TripShape{TripID: trip.ID, ShapeID: trip.ShapeID}
	if trip.ShapeID == "" {
		return shape, nil
	}

	points, err := manager.GtfsDB.Queries.GetShapePoints(ctx, trip.ShapeID)
	if err != nil {
		return TripShape{}, fmt.Errorf("error loading shape %q: %w", trip.ShapeID, err)
	}

	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}

	shape.Encoded = string(polyline.EncodeCoords(coords))
	shape.NumPoint = len(points)
	return shape, nil
}
