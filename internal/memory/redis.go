package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	redisKeyPrefix     = "agent_memory:"
	redisUpdateRetries = 8
)

// RedisBackend stores each context as a JSON string with a native TTL.
// Updates use WATCH/MULTI so a concurrent writer on the same key forces a retry.
type RedisBackend struct {
	redis  *redis.Client
	tracer trace.Tracer
	now    func() time.Time
}

func NewRedisBackend(client *redis.Client, tracer trace.Tracer) *RedisBackend {
	if client == nil {
		panic("memory: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("clinic.internal.memory.redis")
	}
	return &RedisBackend{redis: client, tracer: tracer, now: time.Now}
}

// useClock makes key TTLs follow the owning Store's clock.
func (b *RedisBackend) useClock(now func() time.Time) { b.now = now }

// redisKey escapes both parts so ("a:b", "c") and ("a", "b:c") never collide.
func redisKey(k Key) string {
	return redisKeyPrefix + url.QueryEscape(k.SessionID) + ":" + url.QueryEscape(k.UserID)
}

func (b *RedisBackend) Load(ctx context.Context, key Key) (*Context, error) {
	ctx, span := b.tracer.Start(ctx, "memory.redis.load")
	defer span.End()

	data, err := b.redis.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: redis get: %w", err)
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("memory: decode context: %w", err)
	}
	return &c, nil
}

func (b *RedisBackend) Update(ctx context.Context, key Key, fn func(c *Context) error) (*Context, error) {
	ctx, span := b.tracer.Start(ctx, "memory.redis.update")
	defer span.End()

	rk := redisKey(key)
	var result *Context
	txf := func(tx *redis.Tx) error {
		var c Context
		data, err := tx.Get(ctx, rk).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("memory: redis get: %w", err)
		default:
			if err := json.Unmarshal(data, &c); err != nil {
				return fmt.Errorf("memory: decode context: %w", err)
			}
		}
		if err := fn(&c); err != nil {
			return err
		}
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("memory: encode context: %w", err)
		}
		// A zero TTL means "keep forever" to Redis, so an already expired
		// context is removed instead of written.
		var ttl time.Duration
		if !c.ExpiresAt.IsZero() {
			ttl = c.ExpiresAt.Sub(b.now())
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if c.ExpiresAt.IsZero() || ttl > 0 {
				pipe.Set(ctx, rk, payload, ttl)
			} else {
				pipe.Del(ctx, rk)
			}
			return nil
		})
		if err == nil {
			result = &c
		}
		return err
	}

	for attempt := 0; attempt < redisUpdateRetries; attempt++ {
		err := b.redis.Watch(ctx, txf, rk)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if !errors.Is(err, errSkipWrite) {
				span.RecordError(err)
			}
			return nil, err
		}
		return result, nil
	}
	err := fmt.Errorf("memory: update %s: too much contention", rk)
	span.RecordError(err)
	return nil, err
}

// DeleteExpired scans for contexts whose recorded expiry has passed. Redis
// TTLs normally remove them first; this catches keys written without one.
func (b *RedisBackend) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, span := b.tracer.Start(ctx, "memory.redis.sweep")
	defer span.End()

	removed := 0
	iter := b.redis.Scan(ctx, 0, redisKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		rk := iter.Val()
		data, err := b.redis.Get(ctx, rk).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			return removed, fmt.Errorf("memory: redis get %s: %w", rk, err)
		}
		var c Context
		if err := json.Unmarshal(data, &c); err != nil || c.Expired(now) {
			n, err := b.redis.Del(ctx, rk).Result()
			if err != nil {
				span.RecordError(err)
				return removed, fmt.Errorf("memory: redis del %s: %w", rk, err)
			}
			removed += int(n)
		}
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return removed, fmt.Errorf("memory: redis scan: %w", err)
	}
	return removed, nil
}
