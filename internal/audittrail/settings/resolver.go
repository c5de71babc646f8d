// Package settings resolves site-scoped audit trail configuration.
package settings

import (
	"context"
	"fmt"
	"time"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/registry"
)

// Store loads and saves the site settings. Load returns defaults when
// nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (*models.Settings, error)
	Save(ctx context.Context, settings *models.Settings) error
}

// Resolver answers enablement and retention questions. Every call reads the
// store again; a settings change applies to the very next event.
type Resolver struct {
	store Store
}

// NewResolver wraps store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Settings returns the current settings snapshot.
func (r *Resolver) Settings(ctx context.Context) (*models.Settings, error) {
	s, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit trail settings: %w", err)
	}
	return s, nil
}

// IsEventEnabled reports whether d should be recorded. Mandatory events are
// always enabled; otherwise an explicit override wins over the default.
func (r *Resolver) IsEventEnabled(ctx context.Context, d *registry.EventDescriptor) (bool, error) {
	if d.IsMandatory {
		return true, nil
	}
	s, err := r.Settings(ctx)
	if err != nil {
		return false, err
	}
	if es, ok := s.EventSetting(d.FullEventName); ok {
		return es.IsEnabled, nil
	}
	return d.IsEnabledByDefault, nil
}

// RetentionPeriod returns how long events are kept.
func (r *Resolver) RetentionPeriod(ctx context.Context) (time.Duration, error) {
	s, err := r.Settings(ctx)
	if err != nil {
		return 0, err
	}
	return s.RetentionPeriod(), nil
}

// ShouldCaptureClientAddress reports whether client IPs are recorded.
func (r *Resolver) ShouldCaptureClientAddress(ctx context.Context) (bool, error) {
	s, err := r.Settings(ctx)
	if err != nil {
		return false, err
	}
	return s.EnableClientIPAddressLogging, nil
}
