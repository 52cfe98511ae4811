// Package cache is a typed read-through cache over Redis. Values are stored
// as JSON under "<prefix>:<id>" with a jittered TTL.
//
// Every Delete bumps a per-key version kept under "<prefix>:<id>:v". A reader
// that misses takes the version before loading from the source of truth and
// fills with SetIfVersion, which only stores the value while the version is
// unchanged. A fill that raced a Delete is dropped instead of caching a value
// read before the write.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache stores values of type T keyed by id.
type Cache[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	// Version returns the current invalidation version of id.
	Version(ctx context.Context, id string) (int64, error)
	// SetIfVersion stores v unless id was deleted since version was read.
	// It reports whether v was stored.
	SetIfVersion(ctx context.Context, id string, version int64, v *T) (bool, error)
	// Delete drops the value and bumps the version.
	Delete(ctx context.Context, id string) error
}

// fillScript: KEYS[1] version key, KEYS[2] value key; ARGV version, payload, ttl ms.
var fillScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or '0'
if cur ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Connect opens a Redis client from config and pings it.
func Connect(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return client, nil
}

type Redis[T any] struct {
	client  *redis.Client
	prefix  string
	baseTTL time.Duration
	jitter  time.Duration
}

// NewRedis builds a cache whose entries live for ttl plus up to ttl/3 jitter,
// so keys written together do not expire together.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix, baseTTL: ttl, jitter: ttl / 3}
}

func (r *Redis[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues(r.prefix).Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s failed: %w", r.prefix, err)
	}
	metrics.CacheHits.WithLabelValues(r.prefix).Inc()
	return &v, nil
}

func (r *Redis[T]) Version(ctx context.Context, id string) (int64, error) {
	v, err := r.client.Get(ctx, r.versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis version read failed: %w", err)
	}
	return v, nil
}

func (r *Redis[T]) SetIfVersion(ctx context.Context, id string, version int64, v *T) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("marshal %s failed: %w", r.prefix, err)
	}
	stored, err := fillScript.Run(ctx, r.client,
		[]string{r.versionKey(id), r.key(id)},
		strconv.FormatInt(version, 10), data, r.ttl().Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis set failed: %w", err)
	}
	return stored == 1, nil
}

// Delete removes the value and bumps the version in one transaction. The
// version outlives any value written under it.
func (r *Redis[T]) Delete(ctx context.Context, id string) error {
	vk := r.versionKey(id)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.key(id))
		p.Incr(ctx, vk)
		p.Expire(ctx, vk, 2*(r.baseTTL+r.jitter))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *Redis[T]) key(id string) string {
	return r.prefix + ":" + id
}

func (r *Redis[T]) versionKey(id string) string {
	return r.prefix + ":" + id + ":v"
}

func (r *Redis[T]) ttl() time.Duration {
	if r.jitter <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + rand.N(r.jitter)
}

// Noop never stores anything; every Get misses. Used when Redis is unavailable.
type Noop[T any] struct{}

func (Noop[T]) Get(context.Context, string) (*T, error)                       { return nil, ErrCacheMiss }
func (Noop[T]) Version(context.Context, string) (int64, error)                { return 0, nil }
func (Noop[T]) SetIfVersion(context.Context, string, int64, *T) (bool, error) { return false, nil }
func (Noop[T]) Delete(context.Context, string) error                          { return nil }
