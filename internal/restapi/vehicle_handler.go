package restapi

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"bctvictracker.ca/internal/models"
)

// vehicleHandler reports the live status of a single bus, identified by its
// fleet number. The realtime snapshot is refreshed first; the refresh is a
// no-op when the rate limiter still holds a fresh snapshot.
func (api *RestAPI) vehicleHandler(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	number := strings.TrimSpace(params.ByName("number"))
	if number == "" {
		api.sendError(w, r, http.StatusBadRequest, "Please Select A Bus")
		return
	}

	api.GtfsManager.Refresh(r.Context())
	snapshot := api.GtfsManager.Snapshot()

	showAllStops := r.URL.Query().Get("allStops") == "true"
	status := api.Tracker.VehicleStatus(r.Context(), number, snapshot, showAllStops)

	api.sendResponse(w, r, models.NewOKResponse(status, api.Clock))
}
