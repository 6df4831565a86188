// Package webui serves the rider-facing tracker page and a development-only
// debug view over the loaded data.
package webui

import (
	"embed"
	"net/http"

	"bctvictracker.ca/internal/app"
)

//go:embed static
var staticFS embed.FS

// WebUI carries the application dependencies into the page handlers.
type WebUI struct {
	*app.Application
}

// SetRoutes registers the web UI routes on mux.
func (webUI *WebUI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", webUI.indexHandler)
	mux.Handle("/static/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/debug", webUI.debugIndexHandler)
}

// indexHandler serves the tracker page. Anything other than the root path
// falls through to a 404 so API typos do not render HTML.
func (webUI *WebUI) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
