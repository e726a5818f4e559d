package repository

import (
	"context"

	"github.com/Heterod0x/oto/pkg/model"
)

// AudioRepository persists raw conversation audio by conversation ID.
type AudioRepository interface {
	// Store saves the raw recording. Called once at ingestion.
	Store(ctx context.Context, audio *model.ConversationAudio) error

	// Get retrieves a recording. Returns a not_found tagged error when
	// the conversation has no stored audio.
	Get(ctx context.Context, id model.ConversationID) (*model.ConversationAudio, error)
}

// ConversationRepository persists conversation records keyed by
// (userID, conversationID).
type ConversationRepository interface {
	// Store saves a conversation. Writing the same conversation ID again
	// replaces the record, so a re-delivered analyze task yields an
	// equivalent conversation instead of a duplicate.
	Store(ctx context.Context, conv *model.Conversation) error

	// GetAll retrieves the summary view of a user's conversations.
	GetAll(ctx context.Context, userID model.UserID) ([]*model.ConversationSummary, error)

	// SearchSimilar performs vector search over conversation embeddings.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*model.Conversation, error)
}

// ContextRepository is the append-only store of extracted facts per
// user. Insertion order is irrelevant; facts are consumed as a set.
type ContextRepository interface {
	Store(ctx context.Context, userID model.UserID, fact *model.ContextFact) error
	GetAll(ctx context.Context, userID model.UserID) ([]*model.ContextFact, error)
}

// ProfileRepository holds the single current profile per user.
type ProfileRepository interface {
	// Store upserts the profile. Last write wins; no history retained.
	Store(ctx context.Context, userID model.UserID, profile *model.Profile) error

	// Get retrieves the current profile. Returns a not_found tagged
	// error when the user has no profile yet.
	Get(ctx context.Context, userID model.UserID) (*model.Profile, error)
}
