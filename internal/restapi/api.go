// Package restapi is the HTTP presentation layer: it parses requests, calls
// into the tracker and GTFS manager, and renders JSON envelopes.
package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bctvictracker.ca/internal/app"
)

// RestAPI carries the application dependencies into the HTTP handlers.
type RestAPI struct {
	*app.Application

	rateLimiter *RateLimitMiddleware
}

// New creates a RestAPI with per-client rate limiting derived from config.
func New(application *app.Application) *RestAPI {
	return &RestAPI{
		Application: application,
		rateLimiter: NewRateLimitMiddleware(application.Config.RateLimit, application.Clock),
	}
}

// Handler builds the full routed and middleware-wrapped HTTP handler.
// notFound, when non-nil, serves anything the API routes do not match
// (the web UI).
func (api *RestAPI) Handler(notFound http.Handler) http.Handler {
	router := httprouter.New()

	api.handle(router, "/api/vehicle/:number", http.HandlerFunc(api.vehicleHandler))
	api.handle(router, "/api/stop/:stopID/arrivals", http.HandlerFunc(api.arrivalsForStopHandler))
	api.handle(router, "/api/stops", CacheControlMiddleware(300, http.HandlerFunc(api.stopOptionsHandler)))
	api.handle(router, "/api/routes", CacheControlMiddleware(300, http.HandlerFunc(api.routeOptionsHandler)))
	api.handle(router, "/api/stops/near", CacheControlMiddleware(300, http.HandlerFunc(api.stopsNearHandler)))
	api.handle(router, "/api/trip/:tripID/shape", CacheControlMiddleware(300, http.HandlerFunc(api.tripShapeHandler)))
	api.handle(router, "/api/current-time", http.HandlerFunc(api.currentTimeHandler))
	api.handle(router, "/healthz", http.HandlerFunc(api.healthHandler))

	if api.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics",
			promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	if notFound != nil {
		router.NotFound = notFound
	}

	var handler http.Handler = router
	handler = api.rateLimiter.Middleware(handler)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	handler = RequestIDMiddleware(handler)
	return gzhttp.GzipHandler(handler)
}

// handle registers a GET route with per-route metrics instrumentation. The
// route pattern, not the raw path, is the metrics label to keep cardinality
// bounded.
func (api *RestAPI) handle(router *httprouter.Router, pattern string, handler http.Handler) {
	router.Handler(http.MethodGet, pattern, MetricsHandler(api.Metrics, pattern, handler))
}
