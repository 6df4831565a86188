package restapi

import (
	"net/http"

	"bctvictracker.ca/internal/models"
)

// currentTimeHandler reports the server's idea of now, in the agency's
// timezone semantics used by the rest of the API.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	timeData := models.NewCurrentTimeData(api.Clock.Now())
	api.sendResponse(w, r, models.NewOKResponse(timeData, api.Clock))
}
