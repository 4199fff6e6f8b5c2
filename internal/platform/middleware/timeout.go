package middleware

import (
	"context"
	"net/http"
	"time"
)

// QueryTimeout attaches a deadline to every request context. Contexts from
// net/http carry no deadline of their own, so without this a stuck database
// connection would hang the request indefinitely; with it, every store call
// fails within the configured bound.
func QueryTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
