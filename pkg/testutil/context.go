package testutil

import (
	"net/http"
	"time"

	"audittrail/pkg/requestcontext"
)

// WithClient attaches client metadata the way the metadata middleware would.
func WithClient(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}

// WithRequestTime pins the request clock read by services.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
