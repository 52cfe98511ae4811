// Package queue runs background jobs with retries.
//
//	type ClearCartJob struct{ UserID string }
//	func (ClearCartJob) JobName() string { return "clear_cart" }
//	func (j *ClearCartJob) Handle(ctx context.Context) error { ... }
//
//	q := queue.New(queue.NewMemoryDriver())
//	q.Register("clear_cart", func() queue.Job { return &ClearCartJob{} })
//	q.Dispatch(ctx, &ClearCartJob{UserID: id})
//	go q.Run(ctx, 2)
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
)

// Job is the interface every queued job must satisfy. Jobs are serialized as
// JSON, so dependencies belong in the factory passed to Register.
type Job interface {
	JobName() string
	Handle(ctx context.Context) error
}

// Driver is the queue storage backend. Pop returns (nil, nil) when it timed
// out without a job.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	Later(ctx context.Context, payload []byte, delay time.Duration) error
	Pop(ctx context.Context) ([]byte, error)
}

type envelope struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queued_at"`
}

type Manager struct {
	driver   Driver
	failed   FailedStore
	maxRetry int
	backoff  func(attempt int) time.Duration

	mu       sync.RWMutex
	registry map[string]func() Job
}

type Option func(*Manager)

// WithFailedStore persists exhausted jobs in addition to the in-memory list.
func WithFailedStore(s FailedStore) Option {
	return func(m *Manager) { m.failed = multiStore{m.failed, s} }
}

func WithMaxRetry(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxRetry = n
		}
	}
}

// WithBackoff sets the wait before retry number attempt+1.
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(m *Manager) { m.backoff = f }
}

func New(driver Driver, opts ...Option) *Manager {
	m := &Manager{
		driver:   driver,
		failed:   NewMemoryFailedStore(),
		maxRetry: 3,
		backoff:  func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
		registry: map[string]func() Job{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register makes a job type available for decoding by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	env, err := encode(job)
	if err != nil {
		return err
	}
	return m.driver.Push(ctx, env)
}

func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	env, err := encode(job)
	if err != nil {
		return err
	}
	return m.driver.Later(ctx, env, delay)
}

func encode(job Job) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", job.JobName(), err)
	}
	env, err := json.Marshal(envelope{Type: job.JobName(), Payload: payload, QueuedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, nil
}

// Run processes jobs with n workers and returns once ctx is cancelled and
// every worker has finished its current job.
func (m *Manager) Run(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	logger.Info("queue: workers started", "count", n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	wg.Wait()
	logger.Info("queue: workers stopped")
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		raw, err := m.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}
		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	m.runWithRetry(ctx, job, env)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, env envelope) {
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= m.maxRetry; attempt++ {
		if lastErr = job.Handle(ctx); lastErr == nil {
			metrics.RecordQueueJob(env.Type, "success", start)
			logger.Info("queue: job processed", "type", env.Type, "attempt", attempt)
			return
		}
		logger.Warn("queue: job failed", "type", env.Type, "attempt", attempt, "error", lastErr)
		if attempt < m.maxRetry && !sleep(ctx, m.backoff(attempt)) {
			break
		}
	}

	metrics.RecordQueueJob(env.Type, "failed", start)
	logger.Error("queue: job exhausted retries", "type", env.Type, "error", lastErr)

	rec := FailedJob{
		Type:     env.Type,
		Payload:  string(env.Payload),
		Error:    lastErr.Error(),
		Attempts: m.maxRetry,
		FailedAt: time.Now().UTC(),
	}
	if err := m.failed.Record(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error("queue: persist failed job", "type", env.Type, "error", err)
	}
}

// FailedJobs returns the failures recorded by this process.
func (m *Manager) FailedJobs() []FailedJob {
	return m.memoryStore().All()
}

func (m *Manager) memoryStore() *MemoryFailedStore {
	switch s := m.failed.(type) {
	case *MemoryFailedStore:
		return s
	case multiStore:
		for _, inner := range s {
			if mem, ok := inner.(*MemoryFailedStore); ok {
				return mem
			}
		}
	}
	return NewMemoryFailedStore()
}

// sleep waits d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
