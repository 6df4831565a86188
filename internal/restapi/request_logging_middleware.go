package restapi

import (
	"log/slog"
	"net/http"
	"time"

	"bctvictracker.ca/internal/logging"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// NewRequestLoggingMiddleware logs every HTTP request with its status,
// duration and request ID, and makes the logger available to downstream
// handlers via the request context.
func NewRequestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := logging.WithLogger(r.Context(), logger)
			r = r.WithContext(ctx)

			recorder := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(recorder, r)

			duration := time.Since(start)

			logging.LogHTTPRequest(logger,
				r.Method,
				r.URL.Path,
				recorder.statusCode,
				float64(duration.Nanoseconds())/1e6,
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("user_agent", r.Header.Get("User-Agent")),
				slog.String("component", "http_server"))
		})
	}
}
