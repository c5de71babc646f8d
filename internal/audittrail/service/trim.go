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
	"audittrail/internal/audittrail/registry"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/platform/sentinel"
)

// TrimThreshold returns the cutoff used by Trim: events created at or
// before it are expired. The threshold is one day later than now minus
// retention.
func TrimThreshold(now time.Time, retention time.Duration) time.Time {
	return now.UTC().Add(24*time.Hour - retention)
}

// Trim deletes every event created at or before the retention threshold and
// returns how many were deleted. Events are loaded in batches and deleted one
// at a time through the delete hooks.
func (s *Service) Trim(ctx context.Context, retention time.Duration) (int, error) {
	threshold := TrimThreshold(s.now(ctx), retention)
	ctx, span := s.tracer.Start(ctx, "audittrail.Trim", trace.WithAttributes(
		attribute.String("audittrail.threshold", threshold.Format(time.RFC3339)),
	))
	defer span.End()

	start := time.Now()
	deleted := 0
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveTrim(start)
			s.metrics.AddTrimmed(deleted)
		}
		span.SetAttributes(attribute.Int("audittrail.deleted", deleted))
	}()

	seen := make(map[string]struct{})
	for {
		batch, err := s.store.ListCreatedBefore(ctx, threshold, s.trimBatchSize)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list expired failed")
			return deleted, fmt.Errorf("list expired audit events: %w", err)
		}

		progressed := false
		for _, event := range batch {
			if _, ok := seen[event.ID]; ok {
				continue
			}
			seen[event.ID] = struct{}{}
			progressed = true
			if err := s.deleteEvent(ctx, event); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "delete failed")
				return deleted, err
			}
			deleted++
		}

		// A short batch means the expired set is drained. A batch of events
		// already handled means the store is not letting go of them.
		if len(batch) < s.trimBatchSize || !progressed {
			return deleted, nil
		}
	}
}

// TrimWithSettings trims with the configured retention.
func (s *Service) TrimWithSettings(ctx context.Context) (int, error) {
	retention, err := s.resolver.RetentionPeriod(ctx)
	if err != nil {
		return 0, err
	}
	return s.Trim(ctx, retention)
}

// DeleteEvent removes a single event by id. Deleting a missing event is
// reported as not found.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	event, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "audit event not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit event")
	}
	if err := s.deleteEvent(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete audit event")
	}
	return nil
}

func (s *Service) deleteEvent(ctx context.Context, event *models.AuditEvent) error {
	if err := s.store.Delete(ctx, event.ID); err != nil {
		return fmt.Errorf("delete audit event %s: %w", event.ID, err)
	}
	if s.metrics != nil {
		s.metrics.IncDeleted()
	}
	for _, h := range s.handlers {
		dh, ok := h.(DeleteHandler)
		if !ok {
			continue
		}
		if err := registry.Invoke(func() error { return dh.Deleted(ctx, event) }); err != nil {
			s.logger.ErrorContext(ctx, "audit trail event handler failed on delete",
				"handler", fmt.Sprintf("%T", h),
				"event_id", event.ID,
				"error", err,
			)
			s.incHookFailure(metrics.StageDelete)
		}
	}
	return nil
}
