package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/queue"
	"github.com/m-mizutani/gt"
)

func TestMemoryStoreClaim(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()

	first := newTestTask(t, model.TaskAnalyzeConversation)
	second := newTestTask(t, model.TaskEvaluateAudio)
	gt.NoError(t, store.Put(ctx, first))
	gt.NoError(t, store.Put(ctx, second))

	claimed, err := store.Claim(ctx, time.Now())
	gt.NoError(t, err)
	gt.V(t, claimed).NotNil()
	gt.V(t, claimed.ID).Equal(first.ID)
	gt.V(t, claimed.Status).Equal(model.TaskStatusRunning)
	gt.V(t, claimed.Attempts).Equal(1)

	// A running task is not claimed again
	claimed, err = store.Claim(ctx, time.Now())
	gt.NoError(t, err)
	gt.V(t, claimed).NotNil()
	gt.V(t, claimed.ID).Equal(second.ID)

	claimed, err = store.Claim(ctx, time.Now())
	gt.NoError(t, err)
	gt.V(t, claimed == nil).Equal(true)
}

func TestMemoryStoreClaimRespectsNextRunAt(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()

	task := newTestTask(t, model.TaskAnalyzeConversation)
	task.NextRunAt = time.Now().Add(time.Hour)
	gt.NoError(t, store.Put(ctx, task))

	claimed, err := store.Claim(ctx, time.Now())
	gt.NoError(t, err)
	gt.V(t, claimed == nil).Equal(true)

	claimed, err = store.Claim(ctx, time.Now().Add(2*time.Hour))
	gt.NoError(t, err)
	gt.V(t, claimed).NotNil()
}

func TestMemoryStoreReclaimsExpiredLease(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore(queue.WithLease(time.Minute))

	task := newTestTask(t, model.TaskAnalyzeConversation)
	gt.NoError(t, store.Put(ctx, task))

	now := time.Now()
	claimed, err := store.Claim(ctx, now)
	gt.NoError(t, err)
	gt.V(t, claimed).NotNil()

	// Within the lease the task stays invisible to other workers
	again, err := store.Claim(ctx, now.Add(30*time.Second))
	gt.NoError(t, err)
	gt.V(t, again == nil).Equal(true)

	// The claiming worker never completed the task. Once the lease runs
	// out it is handed out again instead of staying running forever.
	again, err = store.Claim(ctx, now.Add(2*time.Minute))
	gt.NoError(t, err)
	gt.V(t, again).NotNil()
	gt.V(t, again.ID).Equal(task.ID)
	gt.V(t, again.Status).Equal(model.TaskStatusRunning)
	gt.V(t, again.Attempts).Equal(2)
}

func TestMemoryStoreTransitions(t *testing.T) {
	ctx := context.Background()
	store := queue.NewMemoryStore()

	task := newTestTask(t, model.TaskRefineProfile)
	gt.NoError(t, store.Put(ctx, task))

	_, err := store.Claim(ctx, time.Now())
	gt.NoError(t, err)

	next := time.Now().Add(time.Minute)
	gt.NoError(t, store.Reschedule(ctx, task.ID, next, "transient"))

	got, ok := store.Get(task.ID)
	gt.V(t, ok).Equal(true)
	gt.V(t, got.Status).Equal(model.TaskStatusPending)
	gt.V(t, got.LastError).Equal("transient")
	gt.V(t, got.NextRunAt.Equal(next)).Equal(true)

	gt.NoError(t, store.Complete(ctx, task.ID))
	got, _ = store.Get(task.ID)
	gt.V(t, got.Status).Equal(model.TaskStatusCompleted)

	gt.Error(t, store.Fail(ctx, "missing-task", "boom"))
}
