package conversation

import (
	"context"
	"time"

	"github.com/Heterod0x/oto/pkg/adapter"
	"github.com/Heterod0x/oto/pkg/agent"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Factory builds a Conversation entity from a transcript. It invokes
// the overview summarizer and the embedder; if either output fails
// validation, no Conversation is produced.
type Factory struct {
	summarizer agent.OverviewSummarizer
	embedder   adapter.Embedder
	now        func() time.Time
}

// NewFactory creates a conversation Factory.
func NewFactory(summarizer agent.OverviewSummarizer, embedder adapter.Embedder) *Factory {
	return &Factory{
		summarizer: summarizer,
		embedder:   embedder,
		now:        time.Now,
	}
}

// Create builds the Conversation for the given transcript.
func (f *Factory) Create(ctx context.Context, userID model.UserID, id model.ConversationID, transcript string) (*model.Conversation, error) {
	if transcript == "" {
		return nil, goerr.New("transcript is empty",
			goerr.V("conversation_id", id), goerr.T(model.ErrTagSchema))
	}

	overview, err := f.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to summarize conversation",
			goerr.V("conversation_id", id))
	}

	embedding, err := f.embedder.Embed(ctx, transcript)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed transcript",
			goerr.V("conversation_id", id))
	}

	now := f.now()
	return &model.Conversation{
		ID:         id,
		UserID:     userID,
		Title:      overview.Title,
		Overview:   overview.OneLineSummary,
		Tags:       overview.Tags,
		Transcript: transcript,
		Embedding:  embedding,
		Metadata: model.ConversationMetadata{
			RecordStartAt: now,
			RecordEndAt:   now,
		},
		CreatedAt: now,
	}, nil
}
