package agent

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"text/template"

	"github.com/Heterod0x/oto/pkg/adapter"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/overview.md
var overviewPromptRaw string

var overviewPromptTmpl = template.Must(template.New("overview").Parse(overviewPromptRaw))

// geminiSummarizer implements OverviewSummarizer with schema-constrained
// Gemini output.
type geminiSummarizer struct {
	gemini adapter.Gemini
}

// NewOverviewSummarizer creates a Gemini-backed OverviewSummarizer.
func NewOverviewSummarizer(gemini adapter.Gemini) OverviewSummarizer {
	return &geminiSummarizer{gemini: gemini}
}

func (s *geminiSummarizer) Summarize(ctx context.Context, transcript string) (*model.ConversationOverview, error) {
	var buf bytes.Buffer
	if err := overviewPromptTmpl.Execute(&buf, map[string]any{
		"Transcript": transcript,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute overview prompt template")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ThinkingConfig:   noThinking(),
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title": {
					Type:        genai.TypeString,
					Description: "Short descriptive title of the conversation",
				},
				"one_line_summary": {
					Type:        genai.TypeString,
					Description: "Single sentence summary",
				},
				"tags": {
					Type:        genai.TypeArray,
					Description: "Topic tags",
					Items: &genai.Schema{
						Type: genai.TypeString,
					},
				},
			},
			Required: []string{"title", "one_line_summary", "tags"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := s.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate overview", goerr.T(model.ErrTagProvider))
	}

	rawJSON, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var overview model.ConversationOverview
	if err := json.Unmarshal([]byte(rawJSON), &overview); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal overview JSON",
			goerr.V("json", rawJSON), goerr.T(model.ErrTagSchema))
	}
	if err := overview.Validate(); err != nil {
		return nil, err
	}

	return &overview, nil
}
