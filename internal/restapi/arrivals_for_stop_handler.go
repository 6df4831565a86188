package restapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"bctvictracker.ca/internal/models"
	"bctvictracker.ca/internal/tracker"
)

const (
	defaultArrivalsLimit = 10
	maxArrivalsLimit     = 20
)

// arrivalsForStopHandler returns the next arrivals at a stop, optionally
// filtered to a route (and its lettered variants), merged from the schedule
// and the live trip updates.
func (api *RestAPI) arrivalsForStopHandler(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	stopID := strings.TrimSpace(params.ByName("stopID"))

	query := r.URL.Query()
	routeFilter := strings.TrimSpace(query.Get("route"))
	includeVariants := query.Get("variants") == "true"

	limit := defaultArrivalsLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.sendError(w, r, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
		if limit > maxArrivalsLimit {
			limit = maxArrivalsLimit
		}
	}

	api.GtfsManager.Refresh(r.Context())
	snapshot := api.GtfsManager.Snapshot()

	arrivals, err := api.Tracker.StopArrivals(r.Context(), stopID, routeFilter, includeVariants, limit, snapshot)
	if err != nil {
		var unknownStop *tracker.UnknownStopError
		switch {
		case errors.Is(err, tracker.ErrNoStopSelected):
			api.sendError(w, r, http.StatusBadRequest, "Please Select A Stop")
		case errors.As(err, &unknownStop):
			api.sendNotFound(w, r, unknownStop.Error())
		default:
			api.serverErrorResponse(w, r, err)
		}
		return
	}

	api.sendResponse(w, r, models.NewOKResponse(arrivals, api.Clock))
}
