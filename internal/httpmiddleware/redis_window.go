package httpmiddleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow is a fixed-window counter shared by every API instance that
// points at the same Redis.
type RedisWindow struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisWindow allows perMinute requests per key and minute.
func NewRedisWindow(client *redis.Client, prefix string, perMinute int) *RedisWindow {
	return &RedisWindow{
		client: client,
		prefix: prefix,
		limit:  int64(perMinute),
		window: time.Minute,
		now:    time.Now,
	}
}

func (w *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	slot := w.now().UnixNano() / int64(w.window)
	k := fmt.Sprintf("%s:%s:%d", w.prefix, key, slot)

	pipe := w.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, w.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate window %s: %w", k, err)
	}
	return incr.Val() <= w.limit, nil
}
