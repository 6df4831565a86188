package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"bctvictracker.ca/internal/logging"
	"bctvictracker.ca/internal/models"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(&w)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "resource not found"
	}
	api.sendError(w, r, http.StatusNotFound, message)
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	setJSONResponseType(&w)
	w.WriteHeader(code)

	response := models.ResponseModel{
		Code:        code,
		CurrentTime: models.ResponseCurrentTime(api.Clock),
		Text:        message,
		Version:     2,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.serverErrorResponse(w, r, err)
	}
}

// serverErrorResponse logs the error and, if nothing has been written yet,
// reports a generic 500 to the client.
func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.Logger, "internal server error", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())))

	http.Error(w, "the server encountered a problem and could not process your request",
		http.StatusInternalServerError)
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}
