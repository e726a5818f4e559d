package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/utils/logging"
	"github.com/Heterod0x/oto/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
)

// Scheduler enqueues a pipeline stage as an asynchronous unit of work.
// The caller does not block on the stage's completion.
type Scheduler interface {
	Enqueue(ctx context.Context, task *model.Task) error
}

// Handler executes one task. Handlers must be idempotent: the queue
// guarantees at-least-once delivery, not exactly-once.
type Handler func(ctx context.Context, task *model.Task) error

// storeScheduler implements Scheduler by persisting the task in the
// durable store that the dispatcher polls.
type storeScheduler struct {
	store Store
}

// NewScheduler creates a Scheduler writing into the given store.
func NewScheduler(store Store) Scheduler {
	return &storeScheduler{store: store}
}

func (s *storeScheduler) Enqueue(ctx context.Context, task *model.Task) error {
	if err := s.store.Put(ctx, task); err != nil {
		return goerr.Wrap(err, "failed to enqueue task",
			goerr.V("kind", task.Kind), goerr.T(model.ErrTagStorage))
	}

	logging.From(ctx).Debug("task enqueued",
		slog.Any("kind", task.Kind), slog.Any("task_id", task.ID))
	return nil
}

// Dispatcher polls the store and runs claimed tasks on a bounded pool
// of workers. A failed task is retried with exponential backoff up to
// its attempt bound unless the failure is permanent; exhausted tasks
// are marked failed with their last error, never dropped.
type Dispatcher struct {
	store    Store
	handlers map[model.TaskKind]Handler

	workers        int
	pollInterval   time.Duration
	handlerTimeout time.Duration
	baseBackoff    time.Duration
	maxAttempts    int

	metrics *metrics.Metrics
}

// DispatcherOption is a functional option for the dispatcher.
type DispatcherOption func(*Dispatcher)

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithPollInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

func WithHandlerTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.handlerTimeout = timeout
		}
	}
}

func WithBaseBackoff(backoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if backoff > 0 {
			d.baseBackoff = backoff
		}
	}
}

func WithMaxAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher over the given store.
func NewDispatcher(store Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:          store,
		handlers:       make(map[model.TaskKind]Handler),
		workers:        4,
		pollInterval:   500 * time.Millisecond,
		handlerTimeout: 2 * time.Minute,
		baseBackoff:    5 * time.Second,
		maxAttempts:    5,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Register binds a handler to a task kind. Must be called before Run.
func (d *Dispatcher) Register(kind model.TaskKind, handler Handler) {
	d.handlers[kind] = handler
}

// Run polls and executes tasks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	done := make(chan struct{})
	for i := 0; i < d.workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			d.workerLoop(ctx)
		}()
	}

	for i := 0; i < d.workers; i++ {
		<-done
	}
	return ctx.Err()
}

func (d *Dispatcher) workerLoop(ctx context.Context) {
	for {
		task, err := d.store.Claim(ctx, time.Now())
		if err != nil {
			logging.From(ctx).Error("failed to claim task", slog.Any("error", err))
		}
		if task == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.pollInterval):
			}
			continue
		}

		d.runTask(ctx, task)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (d *Dispatcher) runTask(ctx context.Context, task *model.Task) {
	logger := logging.From(ctx).With(
		slog.Any("task_id", task.ID),
		slog.Any("kind", task.Kind),
		slog.Int("attempt", task.Attempts),
	)
	ctx = logging.With(ctx, logger)

	handler, ok := d.handlers[task.Kind]
	if !ok {
		logger.Error("no handler registered for task kind")
		d.fail(ctx, task, goerr.New("no handler registered", goerr.V("kind", task.Kind)))
		return
	}

	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, d.handlerTimeout)
	err := handler(runCtx, task)
	cancel()
	elapsed := time.Since(started)

	if err == nil {
		if cerr := d.store.Complete(ctx, task.ID); cerr != nil {
			logger.Error("failed to mark task completed", slog.Any("error", cerr))
		}
		d.metrics.ObserveTask(string(task.Kind), "completed", elapsed)
		logger.Info("task completed", slog.Duration("elapsed", elapsed))
		return
	}

	max := task.MaxAttempts
	if max <= 0 {
		max = d.maxAttempts
	}

	if model.IsPermanent(err) || task.Attempts >= max {
		logger.Error("task failed permanently", slog.Any("error", err))
		d.fail(ctx, task, err)
		return
	}

	next := time.Now().Add(d.backoff(task.Attempts))
	if rerr := d.store.Reschedule(ctx, task.ID, next, err.Error()); rerr != nil {
		logger.Error("failed to reschedule task", slog.Any("error", rerr))
		return
	}
	d.metrics.ObserveRetry(string(task.Kind))
	d.metrics.ObserveTask(string(task.Kind), "retried", elapsed)
	logger.Warn("task failed, retrying", slog.Any("error", err), slog.Time("next_run_at", next))
}

func (d *Dispatcher) fail(ctx context.Context, task *model.Task, err error) {
	if ferr := d.store.Fail(ctx, task.ID, err.Error()); ferr != nil {
		logging.From(ctx).Error("failed to mark task failed", slog.Any("error", ferr))
	}
	d.metrics.ObserveTask(string(task.Kind), "failed", 0)
}

// backoff grows exponentially with the attempt count: base, 2*base,
// 4*base, capped at 10 minutes.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	backoff := d.baseBackoff
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff > 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return backoff
}
