package httpmiddleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFixedWindow counts requests per key in one-minute windows shared
// across instances. When Redis is unreachable the limiter fails open:
// dropping traffic because the limiter is down would be worse than not
// limiting it.
type RedisFixedWindow struct {
	client    *redis.Client
	perMinute int
	prefix    string
}

// NewRedisFixedWindow connects a limiter to Redis with short timeouts.
func NewRedisFixedWindow(addr string, perMinute int) *RedisFixedWindow {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &RedisFixedWindow{client: client, perMinute: perMinute, prefix: "gymtrack:ratelimit:"}
}

// Healthy verifies redis connectivity.
func (l *RedisFixedWindow) Healthy(ctx context.Context) bool {
	if l == nil || l.client == nil {
		return false
	}
	return l.client.Ping(ctx).Err() == nil
}

// Allow increments the key's counter for the current minute window.
func (l *RedisFixedWindow) Allow(ctx context.Context, key string) bool {
	window := time.Now().Format("200601021504")
	redisKey := l.prefix + key + ":" + window

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, time.Minute)
	}
	return count <= int64(l.perMinute)
}
