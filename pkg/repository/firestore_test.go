package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/repository"
	"github.com/m-mizutani/gt"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestFirestoreConversationRoundTrip(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	userID := model.UserID("test-user-" + string(model.NewConversationID()))
	conv := &model.Conversation{
		ID:         model.NewConversationID(),
		UserID:     userID,
		Title:      "Integration test conversation",
		Overview:   "A conversation written by the integration test",
		Tags:       []string{"test"},
		Transcript: "hello from the integration test",
		Embedding:  []float32{0.1, 0.2, 0.3},
		CreatedAt:  time.Now(),
	}

	gt.NoError(t, repo.Store(ctx, conv))

	summaries, err := repo.GetAll(ctx, userID)
	gt.NoError(t, err)
	gt.V(t, len(summaries)).Equal(1)
	gt.V(t, summaries[0].ID).Equal(conv.ID)
	gt.V(t, summaries[0].Title).Equal(conv.Title)
}

func TestFirestoreFactsAndProfile(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	userID := model.UserID("test-user-" + string(model.NewConversationID()))

	gt.NoError(t, repo.StoreFact(ctx, userID, &model.ContextFact{
		Content: "likes ramen",
		Tag:     model.ContextTagFavoriteFoods,
	}))
	gt.NoError(t, repo.StoreFact(ctx, userID, &model.ContextFact{
		Content: "plays guitar",
		Tag:     model.ContextTagInterests,
	}))

	facts, err := repo.GetAllFacts(ctx, userID)
	gt.NoError(t, err)
	gt.V(t, len(facts)).Equal(2)

	_, err = repo.GetProfile(ctx, userID)
	gt.Error(t, err)
	gt.V(t, model.IsNotFound(err)).Equal(true)

	profile := &model.Profile{
		Age:              34,
		Personality:      "easygoing",
		SelfIntroduction: "I play guitar and love ramen.",
	}
	gt.NoError(t, repo.StoreProfile(ctx, userID, profile))

	got, err := repo.GetProfile(ctx, userID)
	gt.NoError(t, err)
	gt.V(t, got.Age).Equal(34)
	gt.V(t, got.Personality).Equal("easygoing")
}
