// Package registry aggregates the event catalog declared by providers.
package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Registry builds the event catalog from a fixed provider list. The catalog
// is rebuilt on every call; it is small and providers are side-effect free.
type Registry struct {
	providers []Provider
	logger    *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New constructs a Registry over providers, in registration order.
func New(providers []Provider, opts ...Option) *Registry {
	r := &Registry{
		providers: append([]Provider(nil), providers...),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DescribeProviders invokes every provider against a shared context. Each
// provider describes into a scratch context that is merged only on success,
// so a failing provider contributes nothing and never blocks the others.
func (r *Registry) DescribeProviders(ctx context.Context) *DescribeContext {
	dc := NewDescribeContext()
	for _, p := range r.providers {
		scratch := NewDescribeContext()
		if err := Invoke(func() error { return p.Describe(scratch) }); err != nil {
			r.logger.ErrorContext(ctx, "audit trail provider failed to describe events",
				"provider", p.Name(),
				"error", err,
			)
			continue
		}
		dc.merge(scratch)
	}
	return dc
}

// Describe returns the full category catalog.
func (r *Registry) Describe(ctx context.Context) []*CategoryDescriptor {
	return r.DescribeProviders(ctx).Categories()
}

// QueryFilters returns every provider query filter in declaration order.
func (r *Registry) QueryFilters(ctx context.Context) []QueryFilter {
	return r.DescribeProviders(ctx).QueryFilters()
}

// DescribeEvent finds the descriptor for a full event name.
func (r *Registry) DescribeEvent(ctx context.Context, fullEventName string) (*EventDescriptor, bool) {
	for _, c := range r.Describe(ctx) {
		for _, e := range c.Events {
			if e.FullEventName == fullEventName {
				return e, true
			}
		}
	}
	return nil, false
}

// ProviderCategory returns the first category providerName declared into.
func (r *Registry) ProviderCategory(ctx context.Context, providerName string) (string, bool) {
	for _, c := range r.Describe(ctx) {
		if c.DeclaredBy(providerName) {
			return c.Category, true
		}
	}
	return "", false
}

// DescribeEvents resolves a local event name inside the first category
// providerName declared into, including categories opened by another provider. Resolution is scoped by category so unrelated providers can
// reuse common names such as "Created".
func (r *Registry) DescribeEvents(ctx context.Context, providerName, eventName string) []*EventDescriptor {
	categories := r.Describe(ctx)

	var category string
	found := false
	for _, c := range categories {
		if c.DeclaredBy(providerName) {
			category, found = c.Category, true
			break
		}
	}
	if !found {
		return nil
	}

	var out []*EventDescriptor
	for _, c := range categories {
		if c.Category != category {
			continue
		}
		for _, e := range c.Events {
			if e.EventName == eventName {
				out = append(out, e)
			}
		}
	}
	return out
}

// Invoke runs fn and turns a panic into an error. Extension points such as
// providers and hooks go through it so one bad participant cannot take the
// host down.
func Invoke(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}
