// Package sentinel holds infrastructure facts that stores report and services
// translate into domain errors.
package sentinel

import "errors"

var (
	// ErrNotFound means the record does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means the backing system could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
