package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "progress:"

// RedisTracker keeps counters in one Redis hash per key. HINCRBY gives
// the atomic increment the pipeline requires across processes.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTracker constructs a Redis-backed tracker. A zero ttl disables
// expiry; stale progress is harmless, the TTL is purely resource
// management.
func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	return &RedisTracker{client: client, ttl: ttl}
}

func (t *RedisTracker) SetTotal(ctx context.Context, key string, total int64) error {
	rkey := keyPrefix + key
	pipe := t.client.TxPipeline()
	pipe.Del(ctx, rkey)
	pipe.HSet(ctx, rkey,
		"total", total,
		"current", 0,
		"success", 0,
		"failed", 0,
	)
	if t.ttl > 0 {
		pipe.Expire(ctx, rkey, t.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("progress set total %s: %w", key, err)
	}
	return nil
}

func (t *RedisTracker) Increment(ctx context.Context, key string, fields ...Field) error {
	rkey := keyPrefix + key
	pipe := t.client.TxPipeline()
	for _, f := range fields {
		pipe.HIncrBy(ctx, rkey, string(f), 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("progress increment %s: %w", key, err)
	}
	return nil
}

func (t *RedisTracker) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("progress reset %s: %w", key, err)
	}
	return nil
}

func (t *RedisTracker) Get(ctx context.Context, key string) (Progress, error) {
	vals, err := t.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return Progress{}, fmt.Errorf("progress get %s: %w", key, err)
	}
	p := Progress{
		Total:   parseField(vals, "total"),
		Current: parseField(vals, "current"),
		Success: parseField(vals, "success"),
		Failed:  parseField(vals, "failed"),
	}
	p.Percent = percent(p.Current, p.Total)
	return p, nil
}

func parseField(vals map[string]string, field string) int64 {
	v, ok := vals[field]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
