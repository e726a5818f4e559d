package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/repository"
	"github.com/m-mizutani/gt"
)

func TestMemoryAudio(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()

	id := model.NewConversationID()
	audio := &model.ConversationAudio{
		UserID:         "user-1",
		ConversationID: id,
		Data:           []byte{0x01, 0x02, 0x03},
	}
	gt.NoError(t, mem.Audio().Store(ctx, audio))

	got, err := mem.Audio().Get(ctx, id)
	gt.NoError(t, err)
	gt.V(t, got.Data).Equal([]byte{0x01, 0x02, 0x03})

	_, err = mem.Audio().Get(ctx, "missing")
	gt.Error(t, err)
	gt.V(t, model.IsNotFound(err)).Equal(true)
}

func TestMemoryConversations(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		conv := &model.Conversation{
			ID:        model.NewConversationID(),
			UserID:    "user-1",
			Title:     title,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		gt.NoError(t, mem.Conversations().Store(ctx, conv))
	}
	gt.NoError(t, mem.Conversations().Store(ctx, &model.Conversation{
		ID:        model.NewConversationID(),
		UserID:    "user-2",
		Title:     "other user",
		CreatedAt: base,
	}))

	summaries, err := mem.Conversations().GetAll(ctx, "user-1")
	gt.NoError(t, err)
	gt.V(t, len(summaries)).Equal(3)

	// Newest first
	gt.V(t, summaries[0].Title).Equal("third")
	gt.V(t, summaries[2].Title).Equal("first")
}

func TestMemoryConversationStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()

	id := model.NewConversationID()
	conv := &model.Conversation{ID: id, UserID: "user-1", Title: "once"}
	gt.NoError(t, mem.Conversations().Store(ctx, conv))
	gt.NoError(t, mem.Conversations().Store(ctx, conv))

	summaries, err := mem.Conversations().GetAll(ctx, "user-1")
	gt.NoError(t, err)
	gt.V(t, len(summaries)).Equal(1)
}

func TestMemorySearchSimilar(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()

	embeddings := map[string][]float32{
		"food":   {1, 0, 0},
		"travel": {0, 1, 0},
		"music":  {0.9, 0.1, 0},
	}
	for title, embedding := range embeddings {
		gt.NoError(t, mem.Conversations().Store(ctx, &model.Conversation{
			ID:        model.NewConversationID(),
			UserID:    "user-1",
			Title:     title,
			Embedding: embedding,
		}))
	}

	results, err := mem.Conversations().SearchSimilar(ctx, []float32{1, 0, 0}, 2)
	gt.NoError(t, err)
	gt.V(t, len(results)).Equal(2)
	gt.V(t, results[0].Title).Equal("food")
	gt.V(t, results[1].Title).Equal("music")
}

func TestMemoryContexts(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()

	fact1 := &model.ContextFact{Content: "likes ramen", Tag: model.ContextTagFavoriteFoods}
	fact2 := &model.ContextFact{Content: "plays guitar", Tag: model.ContextTagInterests}
	gt.NoError(t, mem.Contexts().Store(ctx, "user-1", fact1))
	gt.NoError(t, mem.Contexts().Store(ctx, "user-1", fact2))

	facts, err := mem.Contexts().GetAll(ctx, "user-1")
	gt.NoError(t, err)
	gt.V(t, len(facts)).Equal(2)

	// Invalid facts are rejected, not stored
	gt.Error(t, mem.Contexts().Store(ctx, "user-1", &model.ContextFact{Content: "x", Tag: "mood"}))
	facts, err = mem.Contexts().GetAll(ctx, "user-1")
	gt.NoError(t, err)
	gt.V(t, len(facts)).Equal(2)
}

func TestMemoryProfiles(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemory()

	_, err := mem.Profiles().Get(ctx, "user-1")
	gt.Error(t, err)
	gt.V(t, model.IsNotFound(err)).Equal(true)

	first := &model.Profile{Personality: "calm", SelfIntroduction: "hi"}
	gt.NoError(t, mem.Profiles().Store(ctx, "user-1", first))

	second := &model.Profile{Age: 30, Personality: "outgoing", SelfIntroduction: "hello"}
	gt.NoError(t, mem.Profiles().Store(ctx, "user-1", second))

	got, err := mem.Profiles().Get(ctx, "user-1")
	gt.NoError(t, err)
	gt.V(t, got.Personality).Equal("outgoing")
	gt.V(t, got.Age).Equal(30)
}
