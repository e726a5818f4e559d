package conversation

import (
	"context"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Search finds conversations whose transcripts are semantically close
// to the query text.
func (u *UseCase) Search(ctx context.Context, query string, limit int) ([]*model.Conversation, error) {
	if query == "" {
		return nil, goerr.New("search query is empty")
	}
	if limit <= 0 {
		limit = 10
	}

	embedding, err := u.factory.embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed search query")
	}

	results, err := u.conversations.SearchSimilar(ctx, embedding, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search similar conversations")
	}

	return results, nil
}
