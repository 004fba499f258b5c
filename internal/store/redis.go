package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out short-lived exclusive locks backed by SET NX.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: "lock:"}
}

// TryLock attempts to take key for ttl without waiting. ok is false when
// another holder has it. The returned unlock only releases a lock this call
// acquired, so an expired-and-retaken key is left alone.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	full := l.prefix + key

	ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{full}, token).Err()
	}
	return unlock, true, nil
}
