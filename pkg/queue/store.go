package queue

import (
	"context"
	"time"

	"github.com/Heterod0x/oto/pkg/model"
)

// defaultLease is how long a claimed task stays invisible to other
// workers. It must exceed the dispatcher's handler timeout so that a
// slow handler is not reclaimed while still running.
const defaultLease = 5 * time.Minute

// StoreOption configures a task store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	lease time.Duration
}

func newStoreConfig(opts ...StoreOption) storeConfig {
	cfg := storeConfig{lease: defaultLease}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLease sets the claim lease duration.
func WithLease(lease time.Duration) StoreOption {
	return func(cfg *storeConfig) {
		if lease > 0 {
			cfg.lease = lease
		}
	}
}

// Store is the durable task queue. At-least-once semantics: a claim
// holds a lease, and a running task whose lease expired (the worker
// died mid-run) is handed out again by Claim.
type Store interface {
	// Put persists a new pending task.
	Put(ctx context.Context, task *model.Task) error

	// Claim atomically picks one due pending task, marks it running and
	// increments its attempt count. Running tasks whose lease expired
	// are claimable again. Returns nil when nothing is due.
	Claim(ctx context.Context, now time.Time) (*model.Task, error)

	// Complete marks a task as successfully finished.
	Complete(ctx context.Context, id model.TaskID) error

	// Fail marks a task as permanently failed, keeping the last error
	// visible to operators.
	Fail(ctx context.Context, id model.TaskID, lastError string) error

	// Reschedule returns a task to pending with a new due time after a
	// transient failure.
	Reschedule(ctx context.Context, id model.TaskID, nextRunAt time.Time, lastError string) error
}
