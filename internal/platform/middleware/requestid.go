// Package middleware provides the HTTP middleware chain: request identity,
// request clock, staff authentication and device authentication.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"gymgate/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates the inbound request ID or generates one, exposing it
// in the context and the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
