package model

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type UserID string

type ConversationID string

// NewConversationID generates a new unique ConversationID. The ID is
// assigned once at ingestion and identifies the conversation through
// the rest of the pipeline.
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

// ConversationAudio is a raw recording as uploaded by a user.
// Immutable once stored.
type ConversationAudio struct {
	UserID         UserID
	ConversationID ConversationID
	Data           []byte
}

// Validate checks the audio is storable.
func (a *ConversationAudio) Validate() error {
	if a.UserID == "" {
		return goerr.New("user ID is empty")
	}
	if a.ConversationID == "" {
		return goerr.New("conversation ID is empty")
	}
	if len(a.Data) == 0 {
		return goerr.New("audio data is empty", goerr.V("conversation_id", a.ConversationID))
	}
	return nil
}
