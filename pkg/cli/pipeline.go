package cli

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Heterod0x/oto/pkg/adapter"
	"github.com/Heterod0x/oto/pkg/agent"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/queue"
	"github.com/Heterod0x/oto/pkg/usecase/conversation"
	"github.com/Heterod0x/oto/pkg/usecase/profile"
	"github.com/Heterod0x/oto/pkg/utils/logging"
	"github.com/Heterod0x/oto/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
)

// pipeline bundles the fully wired usecases and the dispatcher that
// executes their asynchronous stages.
type pipeline struct {
	conversations *conversation.UseCase
	profiles      *profile.UseCase
	dispatcher    *queue.Dispatcher
	stores        *stores
}

func (p *pipeline) Close() {
	p.stores.Close()
}

// newPipeline builds the adapters, agents, usecases and dispatcher from
// configuration and registers one handler per task kind.
func (cfg *config) newPipeline(ctx context.Context, queueOpts []queue.DispatcherOption) (*pipeline, error) {
	st, err := cfg.newStores(ctx)
	if err != nil {
		return nil, err
	}

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}

	transcriber, err := cfg.newTranscriber()
	if err != nil {
		st.Close()
		return nil, err
	}
	vad, quality := cfg.newAcoustics()
	ledger := cfg.newLedger()

	m := metrics.New("oto")

	factory := conversation.NewFactory(
		agent.NewOverviewSummarizer(gemini),
		adapter.NewGeminiEmbedder(gemini),
	)
	scheduler := queue.NewScheduler(st.tasks)

	conversations := conversation.New(
		st.audio,
		st.conversations,
		transcriber,
		vad,
		quality,
		ledger,
		factory,
		scheduler,
		conversation.WithMetrics(m),
	)

	profiles := profile.New(
		agent.NewContextExtractor(gemini),
		agent.NewProfileSynthesizer(gemini),
		st.contexts,
		st.profiles,
	)

	dispatcher := queue.NewDispatcher(st.tasks, append(queueOpts, queue.WithMetrics(m))...)
	registerHandlers(dispatcher, conversations, profiles)

	logging.From(ctx).Info("pipeline initialized",
		slog.String("store", cfg.store),
		slog.Bool("mock_providers", cfg.mockProviders))

	return &pipeline{
		conversations: conversations,
		profiles:      profiles,
		dispatcher:    dispatcher,
		stores:        st,
	}, nil
}

// registerHandlers binds one dispatcher handler per task kind. A
// payload that does not decode is a permanent failure: retrying cannot
// fix a malformed task.
func registerHandlers(d *queue.Dispatcher, conversations *conversation.UseCase, profiles *profile.UseCase) {
	d.Register(model.TaskAnalyzeConversation, func(ctx context.Context, task *model.Task) error {
		var payload model.AnalyzeConversationTask
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return goerr.Wrap(err, "invalid analyze payload",
				goerr.V("task_id", task.ID), goerr.T(model.ErrTagSchema))
		}
		_, err := conversations.Analyze(ctx, payload.UserID, payload.ConversationID)
		return err
	})

	d.Register(model.TaskEvaluateAudio, func(ctx context.Context, task *model.Task) error {
		var payload model.EvaluateAudioTask
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return goerr.Wrap(err, "invalid evaluate payload",
				goerr.V("task_id", task.ID), goerr.T(model.ErrTagSchema))
		}
		_, err := conversations.Evaluate(ctx, payload.UserID, payload.ConversationID)
		return err
	})

	d.Register(model.TaskRefineProfile, func(ctx context.Context, task *model.Task) error {
		var payload model.RefineProfileTask
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return goerr.Wrap(err, "invalid refine payload",
				goerr.V("task_id", task.ID), goerr.T(model.ErrTagSchema))
		}
		return profiles.Refine(ctx, payload.UserID, payload.Transcript)
	})
}
