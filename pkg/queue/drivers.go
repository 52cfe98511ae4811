package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryDriver is an in-process, channel-backed driver for development and
// tests. Jobs do not survive a restart.
type MemoryDriver struct {
	ch chan []byte
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{ch: make(chan []byte, 1000)}
}

func (d *MemoryDriver) Push(ctx context.Context, payload []byte) error {
	select {
	case d.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *MemoryDriver) Later(_ context.Context, payload []byte, delay time.Duration) error {
	time.AfterFunc(delay, func() {
		select {
		case d.ch <- payload:
		default:
		}
	})
	return nil
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload := <-d.ch:
		return payload, nil
	}
}

// RedisDriver keeps ready jobs in a list (LPUSH/BRPOP) and delayed jobs in a
// sorted set scored by run-at time. Due delayed jobs are promoted on each Pop.
type RedisDriver struct {
	rdb        *redis.Client
	readyKey   string
	delayedKey string
	block      time.Duration
	now        func() time.Time
}

func NewRedisDriver(rdb *redis.Client, name string) *RedisDriver {
	return &RedisDriver{
		rdb:        rdb,
		readyKey:   "queue:" + name + ":jobs",
		delayedKey: "queue:" + name + ":delayed",
		block:      2 * time.Second,
		now:        time.Now,
	}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.readyKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

func (d *RedisDriver) Later(ctx context.Context, payload []byte, delay time.Duration) error {
	runAt := float64(d.now().Add(delay).Unix())
	if err := d.rdb.ZAdd(ctx, d.delayedKey, redis.Z{Score: runAt, Member: string(payload)}).Err(); err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	if err := d.promote(ctx); err != nil {
		return nil, err
	}

	result, err := d.rdb.BRPop(ctx, d.block, d.readyKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

// promote moves due delayed jobs onto the ready list. ZRem guards against two
// workers promoting the same job.
func (d *RedisDriver) promote(ctx context.Context) error {
	now := strconv.FormatInt(d.now().Unix(), 10)
	jobs, err := d.rdb.ZRangeByScore(ctx, d.delayedKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return fmt.Errorf("queue/redis: scan delayed: %w", err)
	}
	for _, job := range jobs {
		removed, err := d.rdb.ZRem(ctx, d.delayedKey, job).Result()
		if err != nil {
			return fmt.Errorf("queue/redis: promote: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := d.rdb.LPush(ctx, d.readyKey, job).Err(); err != nil {
			return fmt.Errorf("queue/redis: promote: %w", err)
		}
	}
	return nil
}
