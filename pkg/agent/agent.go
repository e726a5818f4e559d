package agent

import (
	"context"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// OverviewSummarizer produces a title, one-line summary and topic tags
// from a full transcript.
type OverviewSummarizer interface {
	Summarize(ctx context.Context, transcript string) (*model.ConversationOverview, error)
}

// ContextExtractor pulls tagged facts about the user out of a
// transcript. Zero facts is a valid result.
type ContextExtractor interface {
	Extract(ctx context.Context, text string) ([]*model.ContextFact, error)
}

// ProfileSynthesizer regenerates a user profile from the complete
// accumulated fact set.
type ProfileSynthesizer interface {
	Synthesize(ctx context.Context, facts []*model.ContextFact) (*model.Profile, error)
}

// responseText extracts the first text part of a generate response.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.New("invalid response structure from gemini", goerr.T(model.ErrTagProvider))
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}

	return "", goerr.New("no text part in gemini response", goerr.T(model.ErrTagProvider))
}

// noThinking disables thought output for structured generation calls.
func noThinking() *genai.ThinkingConfig {
	budget := int32(0)
	return &genai.ThinkingConfig{
		IncludeThoughts: false,
		ThinkingBudget:  &budget,
	}
}

func contextTagValues() []string {
	tags := model.ContextTags()
	values := make([]string, 0, len(tags))
	for _, t := range tags {
		values = append(values, string(t))
	}
	return values
}
