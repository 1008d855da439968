package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueStopped is returned by Enqueue before Start or after Stop.
var ErrQueueStopped = errors.New("queue not running")

// Task is one unit of work together with its delivery bookkeeping.
type Task[T any] struct {
	Key      string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes a payload. A returned error schedules a retry.
type Handler[T any] func(context.Context, T) error

// Config tunes the worker pool. Zero values fall back to defaults.
type Config struct {
	Workers     int
	BufferSize  int
	MaxAttempts int
	Backoff     time.Duration
	Logger      *zap.Logger
}

// Queue runs payloads through handler on a fixed set of goroutines, retrying
// failures with linear backoff until MaxAttempts is reached.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	cfg     Config
	logger  *zap.Logger

	tasks   chan Task[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New builds a stopped queue.
func New[T any](name string, handler Handler[T], cfg Config) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		tasks:   make(chan Task[T], cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.running = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels pending retries and waits for in-flight handlers to return.
// Tasks still buffered are dropped.
func (q *Queue[T]) Stop() error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("queue stopped", zap.Int("dropped", len(q.tasks)))
	return nil
}

// Enqueue schedules payload. It never blocks: a full buffer is an error.
func (q *Queue[T]) Enqueue(key string, payload T) error {
	return q.push(Task[T]{Key: key, Payload: payload, Enqueued: time.Now().UTC()})
}

func (q *Queue[T]) push(task Task[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return fmt.Errorf("%s: %w", q.name, ErrQueueStopped)
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return fmt.Errorf("%s: buffer full", q.name)
	}
}

func (q *Queue[T]) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			task.Attempt++
			if err := q.handler(q.ctx, task.Payload); err != nil {
				q.retry(task, err)
			}
		}
	}
}

func (q *Queue[T]) retry(task Task[T], err error) {
	if task.Attempt >= q.cfg.MaxAttempts {
		q.logger.Error("task abandoned", zap.String("key", task.Key), zap.Int("attempts", task.Attempt), zap.Error(err))
		return
	}
	q.logger.Warn("task failed", zap.String("key", task.Key), zap.Int("attempt", task.Attempt), zap.Error(err))

	delay := q.cfg.Backoff * time.Duration(task.Attempt)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.push(task); err != nil {
				q.logger.Error("requeue failed", zap.String("key", task.Key), zap.Error(err))
			}
		}
	}()
}
