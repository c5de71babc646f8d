// Package service records, searches and trims audit events.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"audittrail/internal/audittrail/metrics"
	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	"audittrail/internal/audittrail/registry"
	"audittrail/internal/audittrail/settings"
	"audittrail/pkg/requestcontext"
)

// DefaultTrimBatchSize bounds how many expired events are loaded per trim round.
const DefaultTrimBatchSize = 500

// Store persists audit events. Implementations return sentinel.ErrNotFound
// from FindByID for missing events; Delete of a missing event is a no-op.
type Store interface {
	Save(ctx context.Context, event *models.AuditEvent) error
	FindByID(ctx context.Context, id string) (*models.AuditEvent, error)
	// List returns every event matching q, fully ordered by order.
	List(ctx context.Context, q *query.Query, order models.OrderBy) ([]*models.AuditEvent, error)
	// ListCreatedBefore returns up to limit events with CreatedUTC at or
	// before threshold, oldest first.
	ListCreatedBefore(ctx context.Context, threshold time.Time, limit int) ([]*models.AuditEvent, error)
	Delete(ctx context.Context, id string) error
}

// EventHandler participates in event creation and search filtering.
type EventHandler interface {
	Create(ctx context.Context, cc *models.CreateContext) error
	Filter(ctx context.Context, fc *query.FilterContext) error
}

// DeleteHandler is implemented by event handlers that want to observe deletes.
type DeleteHandler interface {
	Deleted(ctx context.Context, event *models.AuditEvent) error
}

// Service is the audit trail core.
type Service struct {
	registry      *registry.Registry
	store         Store
	settingsStore settings.Store
	resolver      *settings.Resolver
	handlers      []EventHandler
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	now           func(ctx context.Context) time.Time
	newID         func() (string, error)
	trimBatchSize int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEventHandlers appends handlers; they run in the order given.
func WithEventHandlers(handlers ...EventHandler) Option {
	return func(s *Service) {
		s.handlers = append(s.handlers, handlers...)
	}
}

// WithClock overrides the time source. The default reads the request time
// from the context and falls back to the wall clock.
func WithClock(now func(ctx context.Context) time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides event ID generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func WithTrimBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.trimBatchSize = n
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(reg *registry.Registry, store Store, settingsStore settings.Store, opts ...Option) (*Service, error) {
	if reg == nil {
		return nil, errors.New("event registry is required")
	}
	if store == nil {
		return nil, errors.New("event store is required")
	}
	if settingsStore == nil {
		return nil, errors.New("settings store is required")
	}
	s := &Service{
		registry:      reg,
		store:         store,
		settingsStore: settingsStore,
		resolver:      settings.NewResolver(settingsStore),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:        otel.Tracer("audittrail/service"),
		now:           requestcontext.Now,
		newID:         newEventID,
		trimBatchSize: DefaultTrimBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func newEventID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *Service) incSkipped(reason string) {
	if s.metrics != nil {
		s.metrics.IncSkipped(reason)
	}
}

func (s *Service) incHookFailure(stage string) {
	if s.metrics != nil {
		s.metrics.IncHookFailure(stage)
	}
}
