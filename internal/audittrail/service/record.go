package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"audittrail/internal/audittrail/metrics"
	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/registry"
	"audittrail/pkg/requestcontext"
)

// RecordEvent records req against every descriptor the provider's category
// declares for req.EventName. Unknown and disabled events are dropped
// without error; only store and settings failures are returned.
func (s *Service) RecordEvent(ctx context.Context, providerName string, req models.RecordRequest) error {
	ctx, span := s.tracer.Start(ctx, "audittrail.RecordEvent", trace.WithAttributes(
		attribute.String("audittrail.provider", providerName),
		attribute.String("audittrail.event", req.EventName),
	))
	defer span.End()

	descriptors := s.registry.DescribeEvents(ctx, providerName, req.EventName)
	if len(descriptors) == 0 {
		s.logger.DebugContext(ctx, "audit event not declared by provider",
			"provider", providerName,
			"event_name", req.EventName,
		)
		s.incSkipped(metrics.SkipUnknown)
		return nil
	}

	for _, d := range descriptors {
		enabled, err := s.resolver.IsEventEnabled(ctx, d)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "settings unavailable")
			return err
		}
		if !enabled {
			s.incSkipped(metrics.SkipDisabled)
			continue
		}

		cc := models.NewCreateContext(req)
		s.runCreateHooks(ctx, cc)

		event, err := s.materialize(ctx, d, cc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "materialize failed")
			return err
		}

		if err := s.store.Save(ctx, event); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "save failed")
			return fmt.Errorf("save audit event %s: %w", event.FullEventName, err)
		}
		if s.metrics != nil {
			s.metrics.IncRecorded(event.Category)
		}
	}
	return nil
}

func (s *Service) runCreateHooks(ctx context.Context, cc *models.CreateContext) {
	for _, h := range s.handlers {
		if err := registry.Invoke(func() error { return h.Create(ctx, cc) }); err != nil {
			s.logger.ErrorContext(ctx, "audit trail event handler failed on create",
				"handler", fmt.Sprintf("%T", h),
				"event_name", cc.EventName,
				"error", err,
			)
			s.incHookFailure(metrics.StageCreate)
		}
	}
}

func (s *Service) materialize(ctx context.Context, d *registry.EventDescriptor, cc *models.CreateContext) (*models.AuditEvent, error) {
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate audit event id: %w", err)
	}

	userName := strings.TrimSpace(cc.UserName)
	if userName == "" {
		userName = models.EmptyUserName
	}

	created := s.now(ctx).UTC()
	if cc.CreatedUTC != nil {
		created = cc.CreatedUTC.UTC()
	}

	clientIP, err := s.clientAddress(ctx, cc)
	if err != nil {
		return nil, err
	}

	event := &models.AuditEvent{
		ID:              id,
		Category:        d.Category.Category,
		EventName:       d.EventName,
		FullEventName:   d.FullEventName,
		UserName:        userName,
		CreatedUTC:      created,
		Comment:         models.NewlinesToHTML(cc.Comment),
		ClientIPAddress: clientIP,
		EventFilterKey:  cc.EventFilterKey,
		EventFilterData: cc.EventFilterData,
		Payload:         models.Payload{},
	}

	if d.Build != nil {
		if err := registry.Invoke(func() error { d.Build(event, cc.EventData); return nil }); err != nil {
			s.logger.ErrorContext(ctx, "audit event builder failed",
				"event", d.FullEventName,
				"error", err,
			)
			s.incHookFailure(metrics.StageBuild)
		}
	}
	return event, nil
}

// clientAddress prefers an explicit address, then the request address when
// capture is enabled.
func (s *Service) clientAddress(ctx context.Context, cc *models.CreateContext) (string, error) {
	if cc.ClientIPAddress != "" {
		return cc.ClientIPAddress, nil
	}
	capture, err := s.resolver.ShouldCaptureClientAddress(ctx)
	if err != nil {
		return "", err
	}
	if !capture {
		return "", nil
	}
	return requestcontext.ClientIP(ctx), nil
}
