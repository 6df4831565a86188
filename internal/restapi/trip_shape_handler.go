package restapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"bctvictracker.ca/internal/models"
)

// tripShapeHandler returns the encoded polyline for a trip's path so the map
// can draw the route line.
func (api *RestAPI) tripShapeHandler(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	tripID := strings.TrimSpace(params.ByName("tripID"))
	if tripID == "" {
		api.sendError(w, r, http.StatusBadRequest, "missing trip id")
		return
	}

	shape, err := api.GtfsManager.TripShape(r.Context(), tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.sendNotFound(w, r, "trip not found")
			return
		}
		api.serverErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewOKResponse(shape, api.Clock))
}
