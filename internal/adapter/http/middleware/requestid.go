package middleware

import (
	"net/http"

	"github.com/google/uuid"

	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, carried in the log context and
// echoed back in the response header. An id supplied by the caller is kept.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)

		ctx := wrap.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
