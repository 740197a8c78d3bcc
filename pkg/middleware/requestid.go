package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/samherejoy-web/BTools-sub000/pkg/logger"
)

// RequestIDHeader carries the caller-supplied or generated request id.
const RequestIDHeader = "X-Request-ID"

// RequestID propagates X-Request-ID into the request context, generating a
// UUID when the caller did not send one, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id attached by RequestID.
func GetRequestID(ctx context.Context) string {
	return logger.RequestID(ctx)
}
