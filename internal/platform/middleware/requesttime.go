package middleware

import (
	"net/http"
	"time"

	"gymgate/pkg/requestcontext"
)

// RequestTime pins one observation of the clock per request so that day
// bucketing and duration math inside a request never straddle midnight.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
