package gtfs

import (
	"context"
	"sort"

	"github.com/tidwall/rtree"

	"bctvictracker.ca/gtfsdb"
	"bctvictracker.ca/internal/utils"
)

// stopSpatialIndex answers "stops near a point" queries without scanning the
// whole stop table. It is rebuilt whenever the static schedule is imported
// and is immutable afterwards, so readers need no locking.
type stopSpatialIndex struct {
	tree  rtree.RTreeG[gtfsdb.Stop]
	count int
}

func buildStopSpatialIndex(ctx context.Context, queries *gtfsdb.Queries) (*stopSpatialIndex, error) {
	stops, err := queries.ListStops(ctx)
	if err != nil {
		return nil, err
	}

	index := &stopSpatialIndex{count: len(stops)}
	for _, stop := range stops {
		point := [2]float64{stop.Lon, stop.Lat}
		index.tree.Insert(point, point, stop)
	}
	return index, nil
}

type stopWithDistance struct {
	stop     gtfsdb.Stop
	distance float64
}

// within returns stops inside radiusMeters of the point, nearest first,
// capped at limit.
func (index *stopSpatialIndex) within(lat, lon, radiusMeters float64, limit int) []gtfsdb.Stop {
	if index == nil || index.count == 0 || limit <= 0 {
		return nil
	}

	bounds := utils.CalculateBounds(lat, lon, radiusMeters)

	var candidates []stopWithDistance
	index.tree.Search(
		[2]float64{bounds.MinLon, bounds.MinLat},
		[2]float64{bounds.MaxLon, bounds.MaxLat},
		func(_, _ [2]float64, stop gtfsdb.Stop) bool {
			d := utils.Distance(lat, lon, stop.Lat, stop.Lon)
			if d <= radiusMeters {
				candidates = append(candidates, stopWithDistance{stop: stop, distance: d})
			}
			return true
		},
	)

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	stops := make([]gtfsdb.Stop, 0, len(candidates))
	for _, c := range candidates {
		stops = append(stops, c.stop)
	}
	return stops
}
