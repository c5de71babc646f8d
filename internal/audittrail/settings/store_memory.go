package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"audittrail/internal/audittrail/models"
)

// InMemoryStore keeps settings in process. Values are stored encoded so
// callers never share mutable state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	encoded  []byte
	defaults func() *models.Settings
}

// NewInMemoryStore returns a store that falls back to defaults.
func NewInMemoryStore(defaults func() *models.Settings) *InMemoryStore {
	if defaults == nil {
		defaults = models.DefaultSettings
	}
	return &InMemoryStore{defaults: defaults}
}

func (s *InMemoryStore) Load(_ context.Context) (*models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.encoded == nil {
		return s.defaults(), nil
	}
	var out models.Settings
	if err := json.Unmarshal(s.encoded, &out); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &out, nil
}

func (s *InMemoryStore) Save(_ context.Context, settings *models.Settings) error {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encoded = encoded
	return nil
}
