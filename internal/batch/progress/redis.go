package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// progressTTL bounds how long counters for finished or abandoned batches
// linger in Redis.
const progressTTL = 24 * time.Hour

// RedisTracker keeps per-batch counters in a Redis hash so any replica can
// serve progress reads while the import runs on another node.
type RedisTracker struct {
	client redis.Cmdable
}

func NewRedisTracker(client redis.Cmdable) *RedisTracker {
	return &RedisTracker{client: client}
}

func progressKey(batchID string) string {
	return "registry:batch:" + batchID + ":progress"
}

func (t *RedisTracker) Incr(ctx context.Context, batchID, field string) error {
	key := progressKey(batchID)
	pipe := t.client.TxPipeline()
	pipe.HIncrBy(ctx, key, field, 1)
	pipe.Expire(ctx, key, progressTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment batch progress: %w", err)
	}
	return nil
}

func (t *RedisTracker) Snapshot(ctx context.Context, batchID string) (map[string]int64, error) {
	raw, err := t.client.HGetAll(ctx, progressKey(batchID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read batch progress: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for field, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}

func (t *RedisTracker) Clear(ctx context.Context, batchID string) error {
	if err := t.client.Del(ctx, progressKey(batchID)).Err(); err != nil {
		return fmt.Errorf("clear batch progress: %w", err)
	}
	return nil
}
