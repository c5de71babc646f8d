// Package memory is an in-process audit event store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	"audittrail/pkg/platform/sentinel"
)

// InMemoryStore keeps events in a map guarded by an RWMutex. Returned events
// are copies; callers cannot mutate stored state.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string]*models.AuditEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string]*models.AuditEvent)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]*models.AuditEvent)
}

func (s *InMemoryStore) Save(_ context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = clone(event)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

// List returns every event matching q in the requested order.
func (s *InMemoryStore) List(_ context.Context, q *query.Query, order models.OrderBy) ([]*models.AuditEvent, error) {
	s.mu.RLock()
	out := make([]*models.AuditEvent, 0, len(s.events))
	for _, e := range s.events {
		if q.Matches(e) {
			out = append(out, clone(e))
		}
	}
	s.mu.RUnlock()

	query.Sort(out, order)
	return out, nil
}

// ListCreatedBefore returns up to limit events created at or before
// threshold, oldest first. A non-positive limit returns all of them.
func (s *InMemoryStore) ListCreatedBefore(_ context.Context, threshold time.Time, limit int) ([]*models.AuditEvent, error) {
	s.mu.RLock()
	var out []*models.AuditEvent
	for _, e := range s.events {
		if !e.CreatedUTC.After(threshold) {
			out = append(out, clone(e))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedUTC.Equal(out[j].CreatedUTC) {
			return out[i].CreatedUTC.Before(out[j].CreatedUTC)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes an event. Deleting a missing event is not an error.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, id)
	return nil
}

// Count returns the number of stored events.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func clone(e *models.AuditEvent) *models.AuditEvent {
	c := *e
	if e.Payload != nil {
		c.Payload = make(models.Payload, len(e.Payload))
		for k, v := range e.Payload {
			c.Payload[k] = v
		}
	}
	return &c
}
