package registry

import (
	"context"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
)

// BuildFunc copies provider-specific submitted data onto the event about to
// be stored.
type BuildFunc func(event *models.AuditEvent, data map[string]any)

// QueryFilter lets a provider narrow searches using filter keys it owns.
type QueryFilter func(ctx context.Context, fc *query.FilterContext) error

// EventDescriptor is the catalog entry for one auditable event.
type EventDescriptor struct {
	EventName          string
	FullEventName      string
	DisplayName        string
	Description        string
	IsMandatory        bool
	IsEnabledByDefault bool
	Build              BuildFunc
	Category           *CategoryDescriptor
}

// CategoryDescriptor groups the events of one category. ProviderName is the
// provider that opened it; Contributors lists every provider that declared
// into it, opener first.
type CategoryDescriptor struct {
	Category     string
	DisplayName  string
	ProviderName string
	Contributors []string
	Events       []*EventDescriptor
}

// DeclaredBy reports whether providerName contributed to the category.
func (c *CategoryDescriptor) DeclaredBy(providerName string) bool {
	for _, name := range c.Contributors {
		if name == providerName {
			return true
		}
	}
	return false
}

func (c *CategoryDescriptor) addContributor(providerName string) {
	if !c.DeclaredBy(providerName) {
		c.Contributors = append(c.Contributors, providerName)
	}
}

// Basic synthesizes a descriptor for a stored event whose provider is no
// longer registered, so it can still be listed.
func Basic(event *models.AuditEvent) *EventDescriptor {
	category := &CategoryDescriptor{
		Category:    event.Category,
		DisplayName: event.Category,
	}
	d := &EventDescriptor{
		EventName:     event.EventName,
		FullEventName: event.FullEventName,
		DisplayName:   event.EventName,
		Category:      category,
	}
	category.Events = []*EventDescriptor{d}
	return d
}

// EventOption configures an event declaration.
type EventOption func(*EventDescriptor)

// EnabledByDefault records the event unless settings disable it.
func EnabledByDefault() EventOption {
	return func(d *EventDescriptor) { d.IsEnabledByDefault = true }
}

// Mandatory records the event regardless of settings.
func Mandatory() EventOption {
	return func(d *EventDescriptor) { d.IsMandatory = true }
}
