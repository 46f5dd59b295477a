package session

import (
	"context"
	"errors"
	"fmt"

	redisclient "github.com/angelmondragon/pharmalink-go/pkg/redis"
)

// RedisStore keeps session fields in Redis for headless deployments where
// several workers share one ordering identity.
type RedisStore struct {
	client *redisclient.Client
}

// NewRedisStore wraps an established redis client.
func NewRedisStore(client *redisclient.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.client.SessionKey(key), value)
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.client.SessionKey(key))
	if errors.Is(err, redisclient.ErrKeyMissing) {
		return "", ErrKeyMissing
	}
	return val, err
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = s.client.SessionKey(key)
	}
	return s.client.Del(ctx, namespaced...)
}
