package model

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
)

// ConversationMetadata holds recording times of a conversation.
type ConversationMetadata struct {
	RecordStartAt   time.Time `firestore:"record_start_at" json:"record_start_at"`
	RecordEndAt     time.Time `firestore:"record_end_at" json:"record_end_at"`
	DurationSeconds int       `firestore:"duration_seconds" json:"duration_seconds"`
}

// Conversation is the durable record built from a transcript. Created
// exactly once per conversation ID and immutable after creation.
type Conversation struct {
	ID         ConversationID       `firestore:"conversation_id"`
	UserID     UserID               `firestore:"user_id"`
	Title      string               `firestore:"title"`
	Overview   string               `firestore:"overview"`
	Tags       []string             `firestore:"tags"`
	Transcript string               `firestore:"transcript"`
	Embedding  firestore.Vector32   `firestore:"embedding"`
	Metadata   ConversationMetadata `firestore:"metadata"`
	CreatedAt  time.Time            `firestore:"created_at"`
}

// Summary returns the list view of the conversation.
func (c *Conversation) Summary() *ConversationSummary {
	return &ConversationSummary{
		ID:        c.ID,
		Title:     c.Title,
		Overview:  c.Overview,
		Tags:      c.Tags,
		CreatedAt: c.CreatedAt,
	}
}

// ConversationSummary is the read model returned by list operations.
type ConversationSummary struct {
	ID        ConversationID `json:"conversation_id"`
	Title     string         `json:"title"`
	Overview  string         `json:"overview"`
	Tags      []string       `json:"tags"`
	CreatedAt time.Time      `json:"created_at"`
}

// ConversationOverview is the structured output of the overview
// summarizer: a title, a one-line summary and topic tags.
type ConversationOverview struct {
	Title          string   `json:"title"`
	OneLineSummary string   `json:"one_line_summary"`
	Tags           []string `json:"tags"`
}

// Validate checks the summarizer produced a usable overview. A failing
// overview aborts conversation creation so that no partial record is
// ever stored.
func (o *ConversationOverview) Validate() error {
	if o.Title == "" {
		return goerr.New("overview title is empty", goerr.T(ErrTagSchema))
	}
	if o.OneLineSummary == "" {
		return goerr.New("overview summary is empty", goerr.T(ErrTagSchema))
	}
	return nil
}
