package registry

import "audittrail/internal/audittrail/models"

// Provider declares a set of auditable events. Describe must be free of side
// effects; it is called every time the catalog is needed.
type Provider interface {
	Name() string
	Describe(dc *DescribeContext) error
}

// DescribeContext accumulates the categories and query filters declared by
// providers.
type DescribeContext struct {
	categories   []*CategoryDescriptor
	queryFilters []QueryFilter
}

// NewDescribeContext returns an empty context.
func NewDescribeContext() *DescribeContext {
	return &DescribeContext{}
}

// For opens (or reopens) a category on behalf of provider p.
func (dc *DescribeContext) For(p Provider, category, displayName string) *CategoryBuilder {
	for _, c := range dc.categories {
		if c.Category == category {
			c.addContributor(p.Name())
			return &CategoryBuilder{category: c}
		}
	}
	c := &CategoryDescriptor{
		Category:     category,
		DisplayName:  displayName,
		ProviderName: p.Name(),
		Contributors: []string{p.Name()},
	}
	dc.categories = append(dc.categories, c)
	return &CategoryBuilder{category: c}
}

// QueryFilter registers a provider query filter.
func (dc *DescribeContext) QueryFilter(f QueryFilter) {
	dc.queryFilters = append(dc.queryFilters, f)
}

// Categories returns the described categories in declaration order.
func (dc *DescribeContext) Categories() []*CategoryDescriptor {
	return append([]*CategoryDescriptor(nil), dc.categories...)
}

// QueryFilters returns the registered query filters in declaration order.
func (dc *DescribeContext) QueryFilters() []QueryFilter {
	return append([]QueryFilter(nil), dc.queryFilters...)
}

func (dc *DescribeContext) merge(other *DescribeContext) {
	for _, c := range other.categories {
		merged := false
		for _, existing := range dc.categories {
			if existing.Category == c.Category {
				for _, e := range c.Events {
					e.Category = existing
				}
				existing.Events = append(existing.Events, c.Events...)
				for _, name := range c.Contributors {
					existing.addContributor(name)
				}
				merged = true
				break
			}
		}
		if !merged {
			dc.categories = append(dc.categories, c)
		}
	}
	dc.queryFilters = append(dc.queryFilters, other.queryFilters...)
}

// CategoryBuilder declares events inside one category.
type CategoryBuilder struct {
	category *CategoryDescriptor
}

// Event declares an event. build may be nil when the event carries no payload.
func (b *CategoryBuilder) Event(name, displayName, description string, build BuildFunc, opts ...EventOption) *CategoryBuilder {
	d := &EventDescriptor{
		EventName:     name,
		FullEventName: models.FullEventName(b.category.Category, name),
		DisplayName:   displayName,
		Description:   description,
		Build:         build,
		Category:      b.category,
	}
	for _, opt := range opts {
		opt(d)
	}
	b.category.Events = append(b.category.Events, d)
	return b
}
