package service

import (
	"context"
	"errors"

	"audittrail/internal/audittrail/models"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/platform/sentinel"
)

// Settings returns the current site settings.
func (s *Service) Settings(ctx context.Context) (*models.Settings, error) {
	settings, err := s.resolver.Settings(ctx)
	if err != nil {
		return nil, settingsError(err, "failed to load audit trail settings")
	}
	return settings, nil
}

// UpdateSettings validates and stores settings. Overrides for events no
// provider declares are kept; a provider may come back later.
func (s *Service) UpdateSettings(ctx context.Context, settings *models.Settings) error {
	if settings == nil {
		return dErrors.New(dErrors.CodeBadRequest, "settings are required")
	}
	if settings.RetentionDays < 1 {
		return dErrors.New(dErrors.CodeValidation, "retention days must be 1 or greater")
	}
	if settings.Trimming.MinimumRunInterval < 0 {
		return dErrors.New(dErrors.CodeValidation, "minimum trim interval must not be negative")
	}
	seen := make(map[string]struct{}, len(settings.EventSettings))
	for _, es := range settings.EventSettings {
		if es.EventName == "" {
			return dErrors.New(dErrors.CodeValidation, "event setting is missing an event name")
		}
		if _, dup := seen[es.EventName]; dup {
			return dErrors.New(dErrors.CodeValidation, "duplicate event setting for "+es.EventName)
		}
		seen[es.EventName] = struct{}{}
	}
	if err := s.settingsStore.Save(ctx, settings); err != nil {
		return settingsError(err, "failed to save audit trail settings")
	}
	return nil
}

func settingsError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail settings are unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
