package adapter

import (
	"context"
	"log/slog"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/utils/logging"
)

// Mock capability implementations for running the pipeline without
// external providers. Selected at startup via configuration.

// MockTranscriber returns a fixed transcript.
type MockTranscriber struct {
	Text string
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return m.Text, nil
}

// MockAcoustic returns fixed scores regardless of the audio.
type MockAcoustic struct {
	Ratio float64
	Score float64
}

func (m *MockAcoustic) VoiceActivityRatio(ctx context.Context, audio []byte) (float64, error) {
	return m.Ratio, nil
}

func (m *MockAcoustic) SoundQualityScore(ctx context.Context, audio []byte) (float64, error) {
	return m.Score, nil
}

// MockLedger logs the delta instead of calling the ledger service.
type MockLedger struct{}

func (m *MockLedger) ApplyPointDelta(ctx context.Context, userID model.UserID, delta int) error {
	logging.From(ctx).Info("point delta (mock ledger)",
		slog.Any("user_id", userID), slog.Int("delta", delta))
	return nil
}
