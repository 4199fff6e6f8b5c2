package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"skdm/internal/platform/redis"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/sentinel"
)

// RedisStore caches artifacts in redis with a TTL. Keys carry the tenant so
// a cached artifact can never be served across tenants.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(tenantID id.TenantID, declarationID id.DeclarationID) string {
	return fmt.Sprintf("artifact:%s:%s", tenantID, declarationID)
}

func (s *RedisStore) Put(ctx context.Context, tenantID id.TenantID, declarationID id.DeclarationID, stored Stored) error {
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := s.client.SetEx(ctx, key(tenantID, declarationID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache artifact: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, tenantID id.TenantID, declarationID id.DeclarationID) (*Stored, error) {
	payload, err := s.client.Get(ctx, key(tenantID, declarationID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("read cached artifact: %w", err)
	}
	var stored Stored
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal cached artifact: %w", err)
	}
	return &stored, nil
}

func (s *RedisStore) Invalidate(ctx context.Context, tenantID id.TenantID, declarationID id.DeclarationID) error {
	if err := s.client.Del(ctx, key(tenantID, declarationID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached artifact: %w", err)
	}
	return nil
}
