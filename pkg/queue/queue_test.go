package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/queue"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func newTestTask(t *testing.T, kind model.TaskKind) *model.Task {
	t.Helper()
	task, err := model.NewTask(kind, map[string]string{"k": "v"})
	gt.NoError(t, err)
	return task
}

// runDispatcher starts the dispatcher and returns a stop function that
// cancels it and waits for the workers to drain.
func runDispatcher(d *queue.Dispatcher) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testDispatcher(store queue.Store, opts ...queue.DispatcherOption) *queue.Dispatcher {
	base := []queue.DispatcherOption{
		queue.WithWorkers(1),
		queue.WithPollInterval(2 * time.Millisecond),
		queue.WithBaseBackoff(time.Millisecond),
	}
	return queue.NewDispatcher(store, append(base, opts...)...)
}

func TestDispatcherCompletesTask(t *testing.T) {
	store := queue.NewMemoryStore()
	d := testDispatcher(store)

	var calls atomic.Int32
	d.Register(model.TaskAnalyzeConversation, func(ctx context.Context, task *model.Task) error {
		calls.Add(1)
		return nil
	})

	task := newTestTask(t, model.TaskAnalyzeConversation)
	gt.NoError(t, store.Put(context.Background(), task))

	stop := runDispatcher(d)
	defer stop()

	waitFor(t, func() bool {
		got, ok := store.Get(task.ID)
		return ok && got.Status == model.TaskStatusCompleted
	})

	gt.V(t, calls.Load()).Equal(int32(1))
	got, _ := store.Get(task.ID)
	gt.V(t, got.Attempts).Equal(1)
}

func TestDispatcherRetriesTransientFailure(t *testing.T) {
	store := queue.NewMemoryStore()
	d := testDispatcher(store, queue.WithMaxAttempts(5))

	var calls atomic.Int32
	d.Register(model.TaskEvaluateAudio, func(ctx context.Context, task *model.Task) error {
		if calls.Add(1) < 3 {
			return errors.New("upstream flake")
		}
		return nil
	})

	task := newTestTask(t, model.TaskEvaluateAudio)
	gt.NoError(t, store.Put(context.Background(), task))

	stop := runDispatcher(d)
	defer stop()

	waitFor(t, func() bool {
		got, ok := store.Get(task.ID)
		return ok && got.Status == model.TaskStatusCompleted
	})

	gt.V(t, calls.Load()).Equal(int32(3))
	got, _ := store.Get(task.ID)
	gt.V(t, got.Attempts).Equal(3)
}

func TestDispatcherFailsPermanentErrorImmediately(t *testing.T) {
	store := queue.NewMemoryStore()
	d := testDispatcher(store, queue.WithMaxAttempts(5))

	var calls atomic.Int32
	d.Register(model.TaskRefineProfile, func(ctx context.Context, task *model.Task) error {
		calls.Add(1)
		return goerr.New("invalid model output", goerr.T(model.ErrTagSchema))
	})

	task := newTestTask(t, model.TaskRefineProfile)
	gt.NoError(t, store.Put(context.Background(), task))

	stop := runDispatcher(d)
	defer stop()

	waitFor(t, func() bool {
		got, ok := store.Get(task.ID)
		return ok && got.Status == model.TaskStatusFailed
	})

	// No retry for a permanent failure
	gt.V(t, calls.Load()).Equal(int32(1))
	got, _ := store.Get(task.ID)
	gt.S(t, got.LastError).Contains("invalid model output")
}

func TestDispatcherExhaustsAttempts(t *testing.T) {
	store := queue.NewMemoryStore()
	d := testDispatcher(store, queue.WithMaxAttempts(2))

	var calls atomic.Int32
	d.Register(model.TaskEvaluateAudio, func(ctx context.Context, task *model.Task) error {
		calls.Add(1)
		return goerr.New("ledger down", goerr.T(model.ErrTagProvider))
	})

	task := newTestTask(t, model.TaskEvaluateAudio)
	gt.NoError(t, store.Put(context.Background(), task))

	stop := runDispatcher(d)
	defer stop()

	waitFor(t, func() bool {
		got, ok := store.Get(task.ID)
		return ok && got.Status == model.TaskStatusFailed
	})

	gt.V(t, calls.Load()).Equal(int32(2))
	got, _ := store.Get(task.ID)
	gt.S(t, got.LastError).Contains("ledger down")
}

func TestDispatcherTaskMaxAttemptsOverride(t *testing.T) {
	store := queue.NewMemoryStore()
	d := testDispatcher(store, queue.WithMaxAttempts(5))

	var calls atomic.Int32
	d.Register(model.TaskEvaluateAudio, func(ctx context.Context, task *model.Task) error {
		calls.Add(1)
		return errors.New("always fails")
	})

	task := newTestTask(t, model.TaskEvaluateAudio)
	task.MaxAttempts = 1
	gt.NoError(t, store.Put(context.Background(), task))

	stop := runDispatcher(d)
	defer stop()

	waitFor(t, func() bool {
		got, ok := store.Get(task.ID)
		return ok && got.Status == model.TaskStatusFailed
	})

	gt.V(t, calls.Load()).Equal(int32(1))
}

func TestDispatcherTimesOutStuckHandler(t *testing.T) {
	store := queue.NewMemoryStore()
	d := testDispatcher(store,
		queue.WithHandlerTimeout(10*time.Millisecond),
		queue.WithMaxAttempts(2),
	)

	var calls atomic.Int32
	d.Register(model.TaskAnalyzeConversation, func(ctx context.Context, task *model.Task) error {
		calls.Add(1)
		<-ctx.Done()
		return goerr.Wrap(ctx.Err(), "transcription stalled")
	})

	task := newTestTask(t, model.TaskAnalyzeConversation)
	gt.NoError(t, store.Put(context.Background(), task))

	stop := runDispatcher(d)
	defer stop()

	waitFor(t, func() bool {
		got, ok := store.Get(task.ID)
		return ok && got.Status == model.TaskStatusFailed
	})

	// The timeout is a transient failure: the task was retried once
	// before the attempt bound marked it failed.
	gt.V(t, calls.Load()).Equal(int32(2))
	got, _ := store.Get(task.ID)
	gt.S(t, got.LastError).Contains("deadline exceeded")
}

func TestDispatcherFailsUnregisteredKind(t *testing.T) {
	store := queue.NewMemoryStore()
	d := testDispatcher(store)

	task := newTestTask(t, model.TaskKind("unknown_kind"))
	gt.NoError(t, store.Put(context.Background(), task))

	stop := runDispatcher(d)
	defer stop()

	waitFor(t, func() bool {
		got, ok := store.Get(task.ID)
		return ok && got.Status == model.TaskStatusFailed
	})
}

func TestSchedulerEnqueue(t *testing.T) {
	store := queue.NewMemoryStore()
	scheduler := queue.NewScheduler(store)

	task := newTestTask(t, model.TaskAnalyzeConversation)
	gt.NoError(t, scheduler.Enqueue(context.Background(), task))

	got, ok := store.Get(task.ID)
	gt.V(t, ok).Equal(true)
	gt.V(t, got.Status).Equal(model.TaskStatusPending)
}
