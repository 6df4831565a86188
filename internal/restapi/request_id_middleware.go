package restapi

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

var validRequestIDRegex = regexp.MustCompile(`^[a-zA-Z0-9-._:]+$`)

// RequestIDMiddleware tags every request with an X-Request-ID, honoring a
// well-formed client-supplied one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")

		if reqID == "" || len(reqID) > 128 || !validRequestIDRegex.MatchString(reqID) {
			reqID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), RequestIDKey, reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from a context, if present.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
