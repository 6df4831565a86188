package restapi

import (
	"net/http"

	"bctvictracker.ca/internal/models"
)

// stopOptionsHandler returns the stop dropdown entries, ordered by stop id.
func (api *RestAPI) stopOptionsHandler(w http.ResponseWriter, r *http.Request) {
	stops, err := api.Tracker.StopOptions(r.Context())
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(stops, api.Clock))
}

// routeOptionsHandler returns the route dropdown entries.
func (api *RestAPI) routeOptionsHandler(w http.ResponseWriter, r *http.Request) {
	routes, err := api.Tracker.RouteOptions(r.Context())
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(routes, api.Clock))
}
