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

//go:embed prompt/profile.md
var profilePromptRaw string

var profilePromptTmpl = template.Must(template.New("profile").Parse(profilePromptRaw))

// geminiSynthesizer implements ProfileSynthesizer. The profile is a
// pure function of the fact set handed in: no incremental merge.
type geminiSynthesizer struct {
	gemini adapter.Gemini
}

// NewProfileSynthesizer creates a Gemini-backed ProfileSynthesizer.
func NewProfileSynthesizer(gemini adapter.Gemini) ProfileSynthesizer {
	return &geminiSynthesizer{gemini: gemini}
}

func (s *geminiSynthesizer) Synthesize(ctx context.Context, facts []*model.ContextFact) (*model.Profile, error) {
	factsJSON, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal facts")
	}

	var buf bytes.Buffer
	if err := profilePromptTmpl.Execute(&buf, map[string]any{
		"Facts": string(factsJSON),
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute profile prompt template")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ThinkingConfig:   noThinking(),
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"age": {
					Type:        genai.TypeInteger,
					Description: "Estimated age, 0 when unknown",
				},
				"gender": {
					Type:        genai.TypeString,
					Description: "Gender, empty when unknown",
				},
				"interests": {
					Type:        genai.TypeArray,
					Description: "Interests, omit when unknown",
					Items: &genai.Schema{
						Type: genai.TypeString,
					},
				},
				"favorite_foods": {
					Type:        genai.TypeArray,
					Description: "Favorite foods, omit when unknown",
					Items: &genai.Schema{
						Type: genai.TypeString,
					},
				},
				"personality": {
					Type:        genai.TypeString,
					Description: "Personality description",
				},
				"self_introduction": {
					Type:        genai.TypeString,
					Description: "Short first-person introduction",
				},
			},
			Required: []string{"age", "gender", "personality", "self_introduction"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := s.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to synthesize profile", goerr.T(model.ErrTagProvider))
	}

	rawJSON, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var profile model.Profile
	if err := json.Unmarshal([]byte(rawJSON), &profile); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal profile JSON",
			goerr.V("json", rawJSON), goerr.T(model.ErrTagSchema))
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	return &profile, nil
}
