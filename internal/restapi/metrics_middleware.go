package restapi

import (
	"net/http"
	"strconv"
	"time"

	"bctvictracker.ca/internal/metrics"
)

// MetricsHandler records request counts and latency for one route. The
// route pattern is passed in at registration time so path parameters never
// leak into label cardinality. A nil metrics receiver returns the handler
// unchanged.
func MetricsHandler(m *metrics.Metrics, pattern string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(recorder.statusCode)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(duration)
	})
}
