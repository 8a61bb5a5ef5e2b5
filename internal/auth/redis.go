package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// revokeScript only ever moves the mark forward; an older revocation arriving
// late from another replica is ignored.
var revokeScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// RedisRevocationStore shares revocations between server instances. Keys
// expire with the longest-lived session they can affect.
type RedisRevocationStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		prefix: "revoked:",
	}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, uid string, at time.Time, ttl time.Duration) error {
	if uid == "" {
		return errors.New("uid cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("revocation ttl must be positive")
	}
	if err := revokeScript.Run(ctx, s.client, []string{s.prefix + uid}, at.UnixMilli(), ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) ValidSince(ctx context.Context, uid string) (time.Time, bool, error) {
	ms, err := s.client.Get(ctx, s.prefix+uid).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("redis get: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}
