package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionConversations = "conversations"
	collectionUserContexts  = "user_contexts"
	collectionUserProfiles  = "user_profiles"
)

// Firestore implements the conversation, context and profile
// repositories on Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore-backed repository set.
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client.
func (r *Firestore) Close() error {
	return r.client.Close()
}

// Store saves a conversation, keyed by its conversation ID. A repeated
// write for the same ID replaces the document.
func (r *Firestore) Store(ctx context.Context, conv *model.Conversation) error {
	doc := r.client.Collection(collectionConversations).Doc(string(conv.ID))
	if _, err := doc.Set(ctx, conv); err != nil {
		return goerr.Wrap(err, "failed to store conversation",
			goerr.V("conversation_id", conv.ID), goerr.T(model.ErrTagStorage))
	}
	return nil
}

func (r *Firestore) GetAll(ctx context.Context, userID model.UserID) ([]*model.ConversationSummary, error) {
	iter := r.client.Collection(collectionConversations).
		Where("user_id", "==", string(userID)).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var summaries []*model.ConversationSummary
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate conversations",
				goerr.V("user_id", userID), goerr.T(model.ErrTagStorage))
		}

		var conv model.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return nil, goerr.Wrap(err, "failed to decode conversation",
				goerr.V("doc", doc.Ref.ID), goerr.T(model.ErrTagStorage))
		}
		summaries = append(summaries, conv.Summary())
	}

	return summaries, nil
}

func (r *Firestore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*model.Conversation, error) {
	query := r.client.Collection(collectionConversations).FindNearest(
		"embedding",
		firestore.Vector32(embedding),
		limit,
		firestore.DistanceMeasureCosine,
		nil,
	)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var conversations []*model.Conversation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to run vector search", goerr.T(model.ErrTagStorage))
		}

		var conv model.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return nil, goerr.Wrap(err, "failed to decode conversation",
				goerr.V("doc", doc.Ref.ID), goerr.T(model.ErrTagStorage))
		}
		conversations = append(conversations, &conv)
	}

	return conversations, nil
}

// contextDoc is the Firestore document shape of a stored fact.
type contextDoc struct {
	UserID    string    `firestore:"user_id"`
	Content   string    `firestore:"content"`
	Tag       string    `firestore:"tag"`
	CreatedAt time.Time `firestore:"created_at"`
}

// StoreFact appends a fact for the user. Auto-generated document IDs
// keep the store append-only and safe for concurrent writers.
func (r *Firestore) StoreFact(ctx context.Context, userID model.UserID, fact *model.ContextFact) error {
	if err := fact.Validate(); err != nil {
		return err
	}

	_, _, err := r.client.Collection(collectionUserContexts).Add(ctx, &contextDoc{
		UserID:    string(userID),
		Content:   fact.Content,
		Tag:       string(fact.Tag),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to store context fact",
			goerr.V("user_id", userID), goerr.T(model.ErrTagStorage))
	}

	return nil
}

func (r *Firestore) GetAllFacts(ctx context.Context, userID model.UserID) ([]*model.ContextFact, error) {
	iter := r.client.Collection(collectionUserContexts).
		Where("user_id", "==", string(userID)).
		Documents(ctx)
	defer iter.Stop()

	var facts []*model.ContextFact
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate context facts",
				goerr.V("user_id", userID), goerr.T(model.ErrTagStorage))
		}

		var data contextDoc
		if err := doc.DataTo(&data); err != nil {
			return nil, goerr.Wrap(err, "failed to decode context fact",
				goerr.V("doc", doc.Ref.ID), goerr.T(model.ErrTagStorage))
		}
		facts = append(facts, &model.ContextFact{
			Content: data.Content,
			Tag:     model.ContextTag(data.Tag),
		})
	}

	return facts, nil
}

// StoreProfile upserts the user's profile document.
func (r *Firestore) StoreProfile(ctx context.Context, userID model.UserID, profile *model.Profile) error {
	doc := r.client.Collection(collectionUserProfiles).Doc(string(userID))
	if _, err := doc.Set(ctx, profile); err != nil {
		return goerr.Wrap(err, "failed to store profile",
			goerr.V("user_id", userID), goerr.T(model.ErrTagStorage))
	}
	return nil
}

func (r *Firestore) GetProfile(ctx context.Context, userID model.UserID) (*model.Profile, error) {
	doc, err := r.client.Collection(collectionUserProfiles).Doc(string(userID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(err, "profile not found",
				goerr.V("user_id", userID), goerr.T(model.ErrTagNotFound))
		}
		return nil, goerr.Wrap(err, "failed to get profile",
			goerr.V("user_id", userID), goerr.T(model.ErrTagStorage))
	}

	var profile model.Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, goerr.Wrap(err, "failed to decode profile",
			goerr.V("user_id", userID), goerr.T(model.ErrTagStorage))
	}

	return &profile, nil
}

// Conversations returns the ConversationRepository view.
func (r *Firestore) Conversations() ConversationRepository { return r }

// Contexts returns the ContextRepository view.
func (r *Firestore) Contexts() ContextRepository {
	return &firestoreContexts{r}
}

// Profiles returns the ProfileRepository view.
func (r *Firestore) Profiles() ProfileRepository {
	return &firestoreProfiles{r}
}

type firestoreContexts struct{ *Firestore }

func (r *firestoreContexts) Store(ctx context.Context, userID model.UserID, fact *model.ContextFact) error {
	return r.StoreFact(ctx, userID, fact)
}

func (r *firestoreContexts) GetAll(ctx context.Context, userID model.UserID) ([]*model.ContextFact, error) {
	return r.GetAllFacts(ctx, userID)
}

type firestoreProfiles struct{ *Firestore }

func (r *firestoreProfiles) Store(ctx context.Context, userID model.UserID, profile *model.Profile) error {
	return r.StoreProfile(ctx, userID, profile)
}

func (r *firestoreProfiles) Get(ctx context.Context, userID model.UserID) (*model.Profile, error) {
	return r.GetProfile(ctx, userID)
}
