package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"audittrail/internal/audittrail/models"
	"audittrail/pkg/platform/sentinel"
)

const defaultRedisKey = "audittrail:settings"

// RedisStore keeps the site settings as one JSON document in Redis.
type RedisStore struct {
	client   redis.Cmdable
	key      string
	defaults func() *models.Settings
}

// NewRedis returns a Redis-backed settings store. An empty key selects the
// default key.
func NewRedis(client redis.Cmdable, key string, defaults func() *models.Settings) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	if defaults == nil {
		defaults = models.DefaultSettings
	}
	return &RedisStore{client: client, key: key, defaults: defaults}
}

func (s *RedisStore) Load(ctx context.Context) (*models.Settings, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w: %w", sentinel.ErrUnavailable, err)
	}
	var out models.Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &out, nil
}

func (s *RedisStore) Save(ctx context.Context, settings *models.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set settings: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
