package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var allowScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then
	redis.call("SET", KEYS[1], 1, "PX", ARGV[2])
	return 1
end
if tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call("INCR", KEYS[1])
return 1
`)

// Redis is a Limiter shared by every replica through redis.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedis returns a Redis limiter. An empty keyPrefix defaults to "ratelimit:".
func NewRedis(client *redis.Client, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) error {
	if limit <= 0 {
		return nil
	}

	res, err := allowScript.Run(ctx, r.client, []string{r.keyPrefix + key}, limit, window.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrLimitExceeded
	}
	return nil
}
