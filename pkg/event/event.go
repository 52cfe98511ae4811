// Package event is an in-process event bus. Listeners run synchronously with
// Fire, or on a bounded worker pool with FireAsync.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/workerpool"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	pool     *workerpool.Pool
}

// NewBus starts a bus with workers goroutines for async delivery.
func NewBus(workers int) *Bus {
	return &Bus{
		handlers: map[string][]Handler{},
		pool:     workerpool.New("events", workers),
	}
}

// Listen registers a handler for the given event name.
func (b *Bus) Listen(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

func (b *Bus) listeners(event string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[event]...)
}

// Fire calls every listener in registration order before returning.
func (b *Bus) Fire(ctx context.Context, event string, payload any) {
	for _, h := range b.listeners(event) {
		safeCall(ctx, event, h, payload)
	}
}

// FireAsync hands each listener to the pool. The listener context keeps the
// request values but not its cancellation. Listeners dropped because the pool
// is full or closed are logged.
func (b *Bus) FireAsync(ctx context.Context, event string, payload any) {
	detached := context.WithoutCancel(ctx)
	for _, h := range b.listeners(event) {
		err := b.pool.Submit(func() { safeCall(detached, event, h, payload) })
		if err != nil {
			level := logger.WithCtx(ctx).Warn
			if errors.Is(err, workerpool.ErrPoolClosed) {
				level = logger.WithCtx(ctx).Debug
			}
			level("event dropped", "event", event, "error", err)
		}
	}
}

// Close waits for queued async listeners and stops the workers.
func (b *Bus) Close() {
	b.pool.Shutdown()
}

func safeCall(ctx context.Context, event string, h Handler, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCtx(ctx).Error("event listener panicked", "event", event, "panic", fmt.Sprint(rec))
		}
	}()
	h(ctx, payload)
}
