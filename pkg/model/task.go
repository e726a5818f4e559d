package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type TaskID string

// NewTaskID generates a new unique TaskID.
func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

// TaskKind identifies a pipeline stage executed by the task queue.
type TaskKind string

const (
	TaskAnalyzeConversation TaskKind = "analyze_conversation"
	TaskEvaluateAudio       TaskKind = "evaluate_audio"
	TaskRefineProfile       TaskKind = "refine_user_profile"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is one independently retryable unit of asynchronous work. The
// payload carries the stage input; stages communicate only through
// persisted state and explicit scheduling.
type Task struct {
	ID          TaskID          `firestore:"task_id" json:"task_id"`
	Kind        TaskKind        `firestore:"kind" json:"kind"`
	Payload     json.RawMessage `firestore:"payload" json:"payload"`
	Status      TaskStatus      `firestore:"status" json:"status"`
	Attempts    int             `firestore:"attempts" json:"attempts"`
	MaxAttempts int             `firestore:"max_attempts" json:"max_attempts"`
	NextRunAt   time.Time       `firestore:"next_run_at" json:"next_run_at"`
	LastError   string          `firestore:"last_error,omitempty" json:"last_error,omitempty"`
	CreatedAt   time.Time       `firestore:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `firestore:"updated_at" json:"updated_at"`
}

// AnalyzeConversationTask is the payload of TaskAnalyzeConversation.
type AnalyzeConversationTask struct {
	UserID         UserID         `json:"user_id"`
	ConversationID ConversationID `json:"conversation_id"`
}

// EvaluateAudioTask is the payload of TaskEvaluateAudio.
type EvaluateAudioTask struct {
	UserID         UserID         `json:"user_id"`
	ConversationID ConversationID `json:"conversation_id"`
}

// RefineProfileTask is the payload of TaskRefineProfile. The transcript
// travels in the payload so refinement never re-reads stale audio.
type RefineProfileTask struct {
	UserID     UserID `json:"user_id"`
	Transcript string `json:"transcript"`
}

// NewTask builds a pending task for the given stage with a marshaled
// payload.
func NewTask(kind TaskKind, payload any) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal task payload", goerr.V("kind", kind))
	}

	now := time.Now()
	return &Task{
		ID:        NewTaskID(),
		Kind:      kind,
		Payload:   raw,
		Status:    TaskStatusPending,
		NextRunAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewAnalyzeTask builds the task that transcribes a stored recording
// and creates the conversation record.
func NewAnalyzeTask(userID UserID, conversationID ConversationID) (*Task, error) {
	return NewTask(TaskAnalyzeConversation, &AnalyzeConversationTask{
		UserID:         userID,
		ConversationID: conversationID,
	})
}

// NewEvaluateTask builds the task that scores a stored recording and
// applies the reward to the point ledger.
func NewEvaluateTask(userID UserID, conversationID ConversationID) (*Task, error) {
	return NewTask(TaskEvaluateAudio, &EvaluateAudioTask{
		UserID:         userID,
		ConversationID: conversationID,
	})
}

// NewRefineTask builds the task that extracts context facts from a
// transcript and regenerates the user profile.
func NewRefineTask(userID UserID, transcript string) (*Task, error) {
	return NewTask(TaskRefineProfile, &RefineProfileTask{
		UserID:     userID,
		Transcript: transcript,
	})
}
