// Package requesttime pins "now" for the duration of a request, so every
// audit event recorded while serving it shares one timestamp source.
package requesttime

import (
	"net/http"
	"time"

	"audittrail/pkg/requestcontext"
)

// Middleware captures the current UTC time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
