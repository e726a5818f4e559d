package adapter

import (
	"bytes"
	"context"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Transcriber converts recorded conversation audio into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// whisperClient implements Transcriber with the OpenAI transcription
// API.
type whisperClient struct {
	client openai.Client
	model  openai.AudioModel
}

// WhisperOption is a functional option for the whisper transcriber.
type WhisperOption func(*whisperClient)

// WithWhisperModel overrides the transcription model.
func WithWhisperModel(m openai.AudioModel) WhisperOption {
	return func(c *whisperClient) {
		c.model = m
	}
}

// NewWhisper creates a Transcriber backed by the OpenAI API.
func NewWhisper(apiKey string, opts ...WhisperOption) Transcriber {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)
	c := &whisperClient{
		client: client,
		model:  openai.AudioModelWhisper1,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *whisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: c.model,
		File:  openai.File(bytes.NewReader(audio), "conversation.wav", "audio/wav"),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to transcribe audio", goerr.T(model.ErrTagProvider))
	}

	return resp.Text, nil
}
