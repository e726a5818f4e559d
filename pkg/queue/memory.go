package queue

import (
	"context"
	"sync"
	"time"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// MemoryStore is an in-process Store for tests and the local store
// mode. Not durable across restarts.
type MemoryStore struct {
	mu    sync.Mutex
	lease time.Duration
	tasks map[model.TaskID]*model.Task
	order []model.TaskID
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	cfg := newStoreConfig(opts...)
	return &MemoryStore{
		lease: cfg.lease,
		tasks: make(map[model.TaskID]*model.Task),
	}
}

func (s *MemoryStore) Put(ctx context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *task
	s.tasks[task.ID] = &t
	s.order = append(s.order, task.ID)
	return nil
}

func (s *MemoryStore) Claim(ctx context.Context, now time.Time) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		task := s.tasks[id]
		if !s.claimable(task, now) {
			continue
		}
		task.Status = model.TaskStatusRunning
		task.Attempts++
		task.UpdatedAt = now

		claimed := *task
		return &claimed, nil
	}
	return nil, nil
}

func (s *MemoryStore) claimable(task *model.Task, now time.Time) bool {
	switch task.Status {
	case model.TaskStatusPending:
		return !task.NextRunAt.After(now)
	case model.TaskStatusRunning:
		// The worker holding the claim died; the lease has run out.
		return !task.UpdatedAt.Add(s.lease).After(now)
	default:
		return false
	}
}

func (s *MemoryStore) Complete(ctx context.Context, id model.TaskID) error {
	return s.transition(id, model.TaskStatusCompleted, time.Time{}, "")
}

func (s *MemoryStore) Fail(ctx context.Context, id model.TaskID, lastError string) error {
	return s.transition(id, model.TaskStatusFailed, time.Time{}, lastError)
}

func (s *MemoryStore) Reschedule(ctx context.Context, id model.TaskID, nextRunAt time.Time, lastError string) error {
	return s.transition(id, model.TaskStatusPending, nextRunAt, lastError)
}

func (s *MemoryStore) transition(id model.TaskID, status model.TaskStatus, nextRunAt time.Time, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return goerr.New("task not found", goerr.V("task_id", id), goerr.T(model.ErrTagNotFound))
	}
	task.Status = status
	task.LastError = lastError
	task.UpdatedAt = time.Now()
	if !nextRunAt.IsZero() {
		task.NextRunAt = nextRunAt
	}
	return nil
}

// Get returns a copy of the task, mainly for tests.
func (s *MemoryStore) Get(id model.TaskID) (*model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	t := *task
	return &t, true
}

// Tasks returns copies of all tasks in insertion order, mainly for
// tests.
func (s *MemoryStore) Tasks() []*model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Task, 0, len(s.order))
	for _, id := range s.order {
		t := *s.tasks[id]
		out = append(out, &t)
	}
	return out
}
