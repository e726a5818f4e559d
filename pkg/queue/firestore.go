package queue

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

const collectionTasks = "pipeline_tasks"

// FirestoreStore is the durable Store on Cloud Firestore. Claiming runs
// in a transaction so that concurrent workers never run the same task
// twice at the same time.
type FirestoreStore struct {
	client *firestore.Client
	lease  time.Duration
}

// NewFirestoreStore creates a Firestore-backed task store.
func NewFirestoreStore(ctx context.Context, projectID, databaseID string, opts ...StoreOption) (*FirestoreStore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client for task store",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	cfg := newStoreConfig(opts...)
	return &FirestoreStore{client: client, lease: cfg.lease}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) Put(ctx context.Context, task *model.Task) error {
	doc := s.client.Collection(collectionTasks).Doc(string(task.ID))
	if _, err := doc.Set(ctx, task); err != nil {
		return goerr.Wrap(err, "failed to put task",
			goerr.V("task_id", task.ID), goerr.T(model.ErrTagStorage))
	}
	return nil
}

func (s *FirestoreStore) Claim(ctx context.Context, now time.Time) (*model.Task, error) {
	var claimed *model.Task

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		col := s.client.Collection(collectionTasks)
		queries := []firestore.Query{
			col.Where("status", "==", string(model.TaskStatusPending)).
				Where("next_run_at", "<=", now).
				OrderBy("next_run_at", firestore.Asc).
				Limit(1),
			// Running tasks whose lease ran out: the claiming worker died
			// before completing or rescheduling them.
			col.Where("status", "==", string(model.TaskStatusRunning)).
				Where("updated_at", "<=", now.Add(-s.lease)).
				OrderBy("updated_at", firestore.Asc).
				Limit(1),
		}

		for _, query := range queries {
			task, err := claimNext(tx, query, now)
			if err != nil {
				return err
			}
			if task != nil {
				claimed = task
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "task claim transaction failed", goerr.T(model.ErrTagStorage))
	}

	return claimed, nil
}

func claimNext(tx *firestore.Transaction, query firestore.Query, now time.Time) (*model.Task, error) {
	iter := tx.Documents(query)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query due tasks")
	}

	var task model.Task
	if err := doc.DataTo(&task); err != nil {
		return nil, goerr.Wrap(err, "failed to decode task", goerr.V("doc", doc.Ref.ID))
	}

	task.Status = model.TaskStatusRunning
	task.Attempts++
	task.UpdatedAt = now
	if err := tx.Set(doc.Ref, &task); err != nil {
		return nil, goerr.Wrap(err, "failed to claim task", goerr.V("task_id", task.ID))
	}

	return &task, nil
}

func (s *FirestoreStore) Complete(ctx context.Context, id model.TaskID) error {
	return s.transition(ctx, id, model.TaskStatusCompleted, time.Time{}, "")
}

func (s *FirestoreStore) Fail(ctx context.Context, id model.TaskID, lastError string) error {
	return s.transition(ctx, id, model.TaskStatusFailed, time.Time{}, lastError)
}

func (s *FirestoreStore) Reschedule(ctx context.Context, id model.TaskID, nextRunAt time.Time, lastError string) error {
	return s.transition(ctx, id, model.TaskStatusPending, nextRunAt, lastError)
}

func (s *FirestoreStore) transition(ctx context.Context, id model.TaskID, status model.TaskStatus, nextRunAt time.Time, lastError string) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "last_error", Value: lastError},
		{Path: "updated_at", Value: time.Now()},
	}
	if !nextRunAt.IsZero() {
		updates = append(updates, firestore.Update{Path: "next_run_at", Value: nextRunAt})
	}

	doc := s.client.Collection(collectionTasks).Doc(string(id))
	if _, err := doc.Update(ctx, updates); err != nil {
		return goerr.Wrap(err, "failed to update task status",
			goerr.V("task_id", id), goerr.V("status", status), goerr.T(model.ErrTagStorage))
	}
	return nil
}
