package restapi

import (
	"net/http"
	"strconv"

	"bctvictracker.ca/internal/models"
)

const (
	defaultNearRadiusMeters = 500.0
	maxNearRadiusMeters     = 5000.0
	defaultNearLimit        = 25
)

// NearbyStop is one stop near a coordinate, nearest first.
type NearbyStop struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// stopsNearHandler returns stops near a lat/lon point using the in-memory
// spatial index built at startup.
func (api *RestAPI) stopsNearHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(query.Get("lon"), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		api.sendError(w, r, http.StatusBadRequest, "invalid lat/lon parameters")
		return
	}

	radius := defaultNearRadiusMeters
	if raw := query.Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			api.sendError(w, r, http.StatusBadRequest, "invalid radius parameter")
			return
		}
		radius = parsed
		if radius > maxNearRadiusMeters {
			radius = maxNearRadiusMeters
		}
	}

	limit := defaultNearLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.sendError(w, r, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	stops := api.GtfsManager.StopsNear(lat, lon, radius, limit)

	nearby := make([]NearbyStop, 0, len(stops))
	for _, stop := range stops {
		nearby = append(nearby, NearbyStop{
			ID:   stop.ID,
			Name: stop.Name,
			Lat:  stop.Lat,
			Lon:  stop.Lon,
		})
	}

	api.sendResponse(w, r, models.NewOKResponse(nearby, api.Clock))
}
