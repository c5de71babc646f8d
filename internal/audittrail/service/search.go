package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"audittrail/internal/audittrail/metrics"
	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	"audittrail/internal/audittrail/registry"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/platform/sentinel"
)

// Search returns one page of events. filters may be nil. Filter validation
// errors land on filters.Validation and do not stop the query; suppressing
// rows for an invalid search is up to the caller.
func (s *Service) Search(ctx context.Context, page, pageSize int, filters *models.Filters, orderBy models.OrderBy) (*models.SearchResults, error) {
	ctx, span := s.tracer.Start(ctx, "audittrail.Search", trace.WithAttributes(
		attribute.Int("audittrail.page", page),
		attribute.Int("audittrail.page_size", pageSize),
		attribute.String("audittrail.order_by", orderBy.String()),
	))
	defer span.End()

	if page < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "page must be 1 or greater")
	}
	if !orderBy.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown sort order")
	}

	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.ObserveSearch(start)
	}

	q := query.New()
	if filters != nil {
		s.applyFilters(ctx, query.NewFilterContext(q, filters))
	}

	events, err := s.store.List(ctx, q, orderBy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	total := len(events)
	return &models.SearchResults{
		Events:     paginate(events, page, pageSize),
		TotalCount: total,
	}, nil
}

// applyFilters runs handler filters in registration order, then provider
// query filters in declaration order. Failures are logged and skipped.
func (s *Service) applyFilters(ctx context.Context, fc *query.FilterContext) {
	for _, h := range s.handlers {
		if err := registry.Invoke(func() error { return h.Filter(ctx, fc) }); err != nil {
			s.logger.ErrorContext(ctx, "audit trail event handler failed on filter",
				"handler", fmt.Sprintf("%T", h),
				"error", err,
			)
			s.incHookFailure(metrics.StageFilter)
		}
	}
	for _, f := range s.registry.QueryFilters(ctx) {
		if err := registry.Invoke(func() error { return f(ctx, fc) }); err != nil {
			s.logger.ErrorContext(ctx, "audit trail provider query filter failed",
				"error", err,
			)
			s.incHookFailure(metrics.StageProvider)
		}
	}
}

// paginate slices the page-th window of size pageSize; a non-positive size
// returns everything from the offset on.
func paginate(events []*models.AuditEvent, page, pageSize int) []*models.AuditEvent {
	if pageSize <= 0 {
		return events
	}
	// Compare in pages first; (page-1)*pageSize can overflow.
	if len(events) == 0 || page-1 > (len(events)-1)/pageSize {
		return []*models.AuditEvent{}
	}
	offset := (page - 1) * pageSize
	if pageSize > len(events)-offset {
		return events[offset:]
	}
	return events[offset : offset+pageSize]
}

// GetEvent returns a single event.
func (s *Service) GetEvent(ctx context.Context, id string) (*models.AuditEvent, error) {
	event, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "audit event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit event")
	}
	return event, nil
}

// DescribeEvent returns the descriptor for a stored event, synthesizing a
// basic one when its provider is no longer registered.
func (s *Service) DescribeEvent(ctx context.Context, event *models.AuditEvent) *registry.EventDescriptor {
	if d, ok := s.registry.DescribeEvent(ctx, event.FullEventName); ok {
		return d
	}
	return registry.Basic(event)
}

// Categories returns the event catalog.
func (s *Service) Categories(ctx context.Context) []*registry.CategoryDescriptor {
	return s.registry.Describe(ctx)
}
