// Package conversation orchestrates the audio half of the pipeline:
// ingestion, transcription and conversation creation, and acoustic
// reward evaluation.
package conversation

import (
	"time"

	"github.com/Heterod0x/oto/pkg/adapter"
	"github.com/Heterod0x/oto/pkg/queue"
	"github.com/Heterod0x/oto/pkg/repository"
	"github.com/Heterod0x/oto/pkg/utils/metrics"
)

// UseCase provides the conversation pipeline stages.
type UseCase struct {
	audio         repository.AudioRepository
	conversations repository.ConversationRepository
	transcriber   adapter.Transcriber
	vad           adapter.VoiceActivityDetector
	quality       adapter.SoundQualityEvaluator
	ledger        adapter.PointLedger
	factory       *Factory
	scheduler     queue.Scheduler
	metrics       *metrics.Metrics
	now           func() time.Time
}

// Option is a functional option for UseCase.
type Option func(*UseCase)

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCase) {
		uc.metrics = m
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
		uc.factory.now = now
	}
}

// New creates a conversation UseCase instance.
func New(
	audio repository.AudioRepository,
	conversations repository.ConversationRepository,
	transcriber adapter.Transcriber,
	vad adapter.VoiceActivityDetector,
	quality adapter.SoundQualityEvaluator,
	ledger adapter.PointLedger,
	factory *Factory,
	scheduler queue.Scheduler,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		audio:         audio,
		conversations: conversations,
		transcriber:   transcriber,
		vad:           vad,
		quality:       quality,
		ledger:        ledger,
		factory:       factory,
		scheduler:     scheduler,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
