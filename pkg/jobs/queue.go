package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task identifies one unit of queued background work. The payload itself
// lives with the submitting service; workers only receive the identifier.
type Task struct {
	ID       string
	Kind     string
	Enqueued time.Time
}

// Handler processes a task. A returned error marks the attempt as failed;
// the submitting service owns any failure bookkeeping, the queue only logs.
type Handler func(context.Context, Task) error

// Config tunes the worker pool.
type Config struct {
	Workers int
	Buffer  int
	Logger  *zap.Logger
}

// Queue is an in-process worker pool. Tasks are dispatched to a fixed set of
// goroutines; there is no retry and no persistence, so it suits work whose
// outcome is tracked elsewhere and can simply be resubmitted.
type Queue struct {
	name    string
	handler Handler
	logger  *zap.Logger

	workers int
	tasks   chan Task

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// NewQueue builds a queue around the given handler. Start must be called
// before the first Enqueue.
func NewQueue(name string, handler Handler, cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		logger:  cfg.Logger,
		workers: cfg.Workers,
		tasks:   make(chan Task, cfg.Buffer),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	q.started = true
	q.logger.Info("worker queue started",
		zap.String("queue", q.name),
		zap.Int("workers", q.workers),
	)
}

// Stop cancels the workers and waits for in-flight tasks to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("worker queue stopped", zap.String("queue", q.name))
}

// Enqueue hands a task to the pool. It fails if the queue was never started
// or has been stopped.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.tasks <- task:
		return nil
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			start := time.Now()
			if err := q.handler(q.ctx, task); err != nil {
				q.logger.Warn("task failed",
					zap.String("queue", q.name),
					zap.String("task_id", task.ID),
					zap.String("kind", task.Kind),
					zap.Duration("elapsed", time.Since(start)),
					zap.Error(err),
				)
				continue
			}
			q.logger.Debug("task completed",
				zap.String("queue", q.name),
				zap.String("task_id", task.ID),
				zap.String("kind", task.Kind),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
	}
}
