package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"bctvictracker.ca/internal/appconf"
)

//go:embed debug_index.html
var templateFS embed.FS

type debugData struct {
	Title string
	Pre   string
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	content := spew.Sdump(data)
	w.Header().Set("Content-Type", "text/html")
	tmpl, err := template.ParseFS(templateFS, "debug_index.html")
	if err != nil {
		slog.Error("failed to parse debug template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, debugData{Title: title, Pre: content}); err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// debugIndexHandler dumps internal state for development. Disabled in
// production.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	var data interface{}
	var title string

	switch r.URL.Query().Get("dataType") {
	case "counts":
		data = webUI.GtfsManager.GtfsDB.TableCounts(r.Context())
		title = "Schedule Database - Table Counts"
	case "vehicles":
		data = webUI.GtfsManager.CurrentVehicles()
		title = "Realtime Snapshot - Vehicle Positions"
	case "updates":
		data = webUI.GtfsManager.CurrentTripUpdates()
		title = "Realtime Snapshot - Trip Updates"
	default:
		data = map[string]string{
			"counts":   "/debug?dataType=counts",
			"vehicles": "/debug?dataType=vehicles",
			"updates":  "/debug?dataType=updates",
		}
		title = "Debug Index"
	}

	writeDebugData(w, title, data)
}
