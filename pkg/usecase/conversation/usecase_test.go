package conversation_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Heterod0x/oto/pkg/adapter"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/queue"
	"github.com/Heterod0x/oto/pkg/repository"
	"github.com/Heterod0x/oto/pkg/usecase/conversation"
	"github.com/m-mizutani/gt"
)

type mockSummarizer struct {
	overview *model.ConversationOverview
	err      error
}

func (m *mockSummarizer) Summarize(ctx context.Context, transcript string) (*model.ConversationOverview, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.overview, nil
}

type mockEmbedder struct {
	vector []float32
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.vector, nil
}

type captureLedger struct {
	users  []model.UserID
	deltas []int
	err    error
}

func (l *captureLedger) ApplyPointDelta(ctx context.Context, userID model.UserID, delta int) error {
	if l.err != nil {
		return l.err
	}
	l.users = append(l.users, userID)
	l.deltas = append(l.deltas, delta)
	return nil
}

type countingTranscriber struct {
	text  string
	calls int
}

func (c *countingTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	c.calls++
	return c.text, nil
}

type harness struct {
	mem         *repository.Memory
	tasks       *queue.MemoryStore
	transcriber *countingTranscriber
	ledger      *captureLedger
	uc          *conversation.UseCase
}

func newHarness(vad, quality float64) *harness {
	mem := repository.NewMemory()
	tasks := queue.NewMemoryStore()
	transcriber := &countingTranscriber{text: "I had ramen for lunch with Kana"}
	ledger := &captureLedger{}

	factory := conversation.NewFactory(
		&mockSummarizer{overview: &model.ConversationOverview{
			Title:          "Ramen lunch",
			OneLineSummary: "Lunch conversation about ramen",
			Tags:           []string{"food"},
		}},
		&mockEmbedder{vector: []float32{0.1, 0.2, 0.3}},
	)

	uc := conversation.New(
		mem.Audio(),
		mem.Conversations(),
		transcriber,
		&adapter.MockAcoustic{Ratio: vad, Score: quality},
		&adapter.MockAcoustic{Ratio: vad, Score: quality},
		ledger,
		factory,
		queue.NewScheduler(tasks),
	)

	return &harness{
		mem:         mem,
		tasks:       tasks,
		transcriber: transcriber,
		ledger:      ledger,
		uc:          uc,
	}
}

func taskKinds(tasks []*model.Task) []model.TaskKind {
	kinds := make([]model.TaskKind, 0, len(tasks))
	for _, task := range tasks {
		kinds = append(kinds, task.Kind)
	}
	return kinds
}

func TestStoreAudio(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0.5, 0.5)

	id, err := h.uc.StoreAudio(ctx, "user-1", []byte("audio bytes"))
	gt.NoError(t, err)
	gt.V(t, id == "").Equal(false)

	audio, err := h.mem.Audio().Get(ctx, id)
	gt.NoError(t, err)
	gt.V(t, audio.Data).Equal([]byte("audio bytes"))

	// Analysis and evaluation are queued as independent tasks
	enqueued := h.tasks.Tasks()
	gt.V(t, len(enqueued)).Equal(2)
	gt.V(t, taskKinds(enqueued)).Equal([]model.TaskKind{
		model.TaskAnalyzeConversation,
		model.TaskEvaluateAudio,
	})

	var payload model.AnalyzeConversationTask
	gt.NoError(t, json.Unmarshal(enqueued[0].Payload, &payload))
	gt.V(t, payload.UserID).Equal("user-1")
	gt.V(t, payload.ConversationID).Equal(id)
}

func TestStoreAudioRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0.5, 0.5)

	_, err := h.uc.StoreAudio(ctx, "user-1", nil)
	gt.Error(t, err)
	gt.V(t, len(h.tasks.Tasks())).Equal(0)

	_, err = h.uc.StoreAudio(ctx, "", []byte("data"))
	gt.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0.5, 0.5)

	id, err := h.uc.StoreAudio(ctx, "user-1", []byte("audio bytes"))
	gt.NoError(t, err)

	transcript, err := h.uc.Analyze(ctx, "user-1", id)
	gt.NoError(t, err)
	gt.V(t, transcript).Equal("I had ramen for lunch with Kana")

	summaries, err := h.mem.Conversations().GetAll(ctx, "user-1")
	gt.NoError(t, err)
	gt.V(t, len(summaries)).Equal(1)
	gt.V(t, summaries[0].ID).Equal(id)
	gt.V(t, summaries[0].Title).Equal("Ramen lunch")

	// Refinement is queued only after the conversation write
	enqueued := h.tasks.Tasks()
	gt.V(t, len(enqueued)).Equal(3)
	gt.V(t, enqueued[2].Kind).Equal(model.TaskRefineProfile)

	var payload model.RefineProfileTask
	gt.NoError(t, json.Unmarshal(enqueued[2].Payload, &payload))
	gt.V(t, payload.UserID).Equal("user-1")
	gt.V(t, payload.Transcript).Equal(transcript)
}

func TestAnalyzeMissingAudio(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0.5, 0.5)

	_, err := h.uc.Analyze(ctx, "user-1", "no-such-conversation")
	gt.Error(t, err)
	gt.V(t, model.IsNotFound(err)).Equal(true)

	// The transcriber is never reached and nothing is scheduled
	gt.V(t, h.transcriber.calls).Equal(0)
	gt.V(t, len(h.tasks.Tasks())).Equal(0)
}

func TestAnalyzeRedeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0.5, 0.5)

	id, err := h.uc.StoreAudio(ctx, "user-1", []byte("audio bytes"))
	gt.NoError(t, err)

	_, err = h.uc.Analyze(ctx, "user-1", id)
	gt.NoError(t, err)
	_, err = h.uc.Analyze(ctx, "user-1", id)
	gt.NoError(t, err)

	// Same conversation ID: the record is replaced, not duplicated
	summaries, err := h.mem.Conversations().GetAll(ctx, "user-1")
	gt.NoError(t, err)
	gt.V(t, len(summaries)).Equal(1)
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0.8, 0.6)

	id, err := h.uc.StoreAudio(ctx, "user-1", []byte("audio bytes"))
	gt.NoError(t, err)

	point, err := h.uc.Evaluate(ctx, "user-1", id)
	gt.NoError(t, err)
	gt.V(t, point).Equal(14)

	gt.V(t, h.ledger.users).Equal([]model.UserID{"user-1"})
	gt.V(t, h.ledger.deltas).Equal([]int{14})
}

func TestEvaluateClampsScores(t *testing.T) {
	ctx := context.Background()
	h := newHarness(1.5, -0.2)

	id, err := h.uc.StoreAudio(ctx, "user-1", []byte("audio bytes"))
	gt.NoError(t, err)

	point, err := h.uc.Evaluate(ctx, "user-1", id)
	gt.NoError(t, err)
	gt.V(t, point).Equal(10)
}

func TestEvaluateMissingAudio(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0.5, 0.5)

	_, err := h.uc.Evaluate(ctx, "user-1", "no-such-conversation")
	gt.Error(t, err)
	gt.V(t, model.IsNotFound(err)).Equal(true)
	gt.V(t, len(h.ledger.deltas)).Equal(0)
}

func TestEvaluateSurfacesLedgerFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0.5, 0.5)
	h.ledger.err = errors.New("ledger unavailable")

	id, err := h.uc.StoreAudio(ctx, "user-1", []byte("audio bytes"))
	gt.NoError(t, err)

	_, err = h.uc.Evaluate(ctx, "user-1", id)
	gt.Error(t, err)
	gt.V(t, model.IsPermanent(err)).Equal(false)
}

func TestSearchUsesQueryEmbedding(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0.5, 0.5)

	id, err := h.uc.StoreAudio(ctx, "user-1", []byte("audio bytes"))
	gt.NoError(t, err)
	_, err = h.uc.Analyze(ctx, "user-1", id)
	gt.NoError(t, err)

	results, err := h.uc.Search(ctx, "ramen", 10)
	gt.NoError(t, err)
	gt.V(t, len(results)).Equal(1)
	gt.V(t, results[0].ID).Equal(id)

	_, err = h.uc.Search(ctx, "", 10)
	gt.Error(t, err)
}
