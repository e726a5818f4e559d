package adapter

import (
	"context"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Embedder converts text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// geminiEmbedder implements Embedder on top of the Gemini API.
type geminiEmbedder struct {
	gemini Gemini
}

// NewGeminiEmbedder creates an Embedder backed by the Gemini embedding
// model.
func NewGeminiEmbedder(gemini Gemini) Embedder {
	return &geminiEmbedder{gemini: gemini}
}

func (e *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.gemini.Embedding(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed text", goerr.T(model.ErrTagProvider))
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("empty embedding response", goerr.T(model.ErrTagProvider))
	}

	return resp.Embeddings[0].Values, nil
}
