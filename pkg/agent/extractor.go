package agent

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/Heterod0x/oto/pkg/adapter"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/extract.md
var extractPromptRaw string

var extractPromptTmpl = template.Must(template.New("extract").Parse(extractPromptRaw))

// geminiExtractor implements ContextExtractor. The extraction is
// schema-guided: the JSON schema of model.ContextFact is derived from
// the Go type and handed to the model together with a target
// description.
type geminiExtractor struct {
	gemini adapter.Gemini
	target string
}

// ExtractorOption is a functional option for the context extractor.
type ExtractorOption func(*geminiExtractor)

// WithExtractionTarget overrides what the extractor looks for.
func WithExtractionTarget(target string) ExtractorOption {
	return func(e *geminiExtractor) {
		e.target = target
	}
}

// NewContextExtractor creates a Gemini-backed ContextExtractor.
func NewContextExtractor(gemini adapter.Gemini, opts ...ExtractorOption) ContextExtractor {
	e := &geminiExtractor{
		gemini: gemini,
		target: "the user's profile",
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *geminiExtractor) Extract(ctx context.Context, text string) ([]*model.ContextFact, error) {
	factSchema, err := jsonschema.For[model.ContextFact](nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to derive fact schema")
	}
	schemaJSON, err := json.MarshalIndent(factSchema, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal fact schema")
	}

	var buf bytes.Buffer
	if err := extractPromptTmpl.Execute(&buf, map[string]any{
		"Target": e.target,
		"Schema": string(schemaJSON),
		"Tags":   strings.Join(contextTagValues(), ", "),
		"Text":   text,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute extract prompt template")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ThinkingConfig:   noThinking(),
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"facts": {
					Type:        genai.TypeArray,
					Description: "Extracted facts about the user, may be empty",
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"content": {
								Type:        genai.TypeString,
								Description: "Statement about the user",
							},
							"tag": {
								Type:        genai.TypeString,
								Description: "Category of the statement",
								Enum:        contextTagValues(),
							},
						},
						Required: []string{"content", "tag"},
					},
				},
			},
			Required: []string{"facts"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := e.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract context", goerr.T(model.ErrTagProvider))
	}

	rawJSON, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var extracted struct {
		Facts []*model.ContextFact `json:"facts"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &extracted); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal extracted facts",
			goerr.V("json", rawJSON), goerr.T(model.ErrTagSchema))
	}

	for _, fact := range extracted.Facts {
		if err := fact.Validate(); err != nil {
			return nil, goerr.Wrap(err, "extractor returned invalid fact",
				goerr.V("fact", fact))
		}
	}

	return extracted.Facts, nil
}
