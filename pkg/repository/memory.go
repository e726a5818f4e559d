package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory implements every repository in process memory. Used by unit
// tests and the local store mode.
type Memory struct {
	mu            sync.RWMutex
	audio         map[model.ConversationID]*model.ConversationAudio
	conversations map[model.ConversationID]*model.Conversation
	createdAt     map[model.ConversationID]time.Time
	facts         map[model.UserID][]*model.ContextFact
	profiles      map[model.UserID]*model.Profile
}

// NewMemory creates an empty in-memory repository set.
func NewMemory() *Memory {
	return &Memory{
		audio:         make(map[model.ConversationID]*model.ConversationAudio),
		conversations: make(map[model.ConversationID]*model.Conversation),
		createdAt:     make(map[model.ConversationID]time.Time),
		facts:         make(map[model.UserID][]*model.ContextFact),
		profiles:      make(map[model.UserID]*model.Profile),
	}
}

// Audio returns the AudioRepository view.
func (m *Memory) Audio() AudioRepository { return &memoryAudio{m} }

// Conversations returns the ConversationRepository view.
func (m *Memory) Conversations() ConversationRepository { return &memoryConversations{m} }

// Contexts returns the ContextRepository view.
func (m *Memory) Contexts() ContextRepository { return &memoryContexts{m} }

// Profiles returns the ProfileRepository view.
func (m *Memory) Profiles() ProfileRepository { return &memoryProfiles{m} }

type memoryAudio struct{ *Memory }

func (m *memoryAudio) Store(ctx context.Context, audio *model.ConversationAudio) error {
	if err := audio.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data := make([]byte, len(audio.Data))
	copy(data, audio.Data)
	m.audio[audio.ConversationID] = &model.ConversationAudio{
		UserID:         audio.UserID,
		ConversationID: audio.ConversationID,
		Data:           data,
	}
	return nil
}

func (m *memoryAudio) Get(ctx context.Context, id model.ConversationID) (*model.ConversationAudio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	audio, ok := m.audio[id]
	if !ok {
		return nil, goerr.New("conversation audio not found",
			goerr.V("conversation_id", id), goerr.T(model.ErrTagNotFound))
	}
	return audio, nil
}

type memoryConversations struct{ *Memory }

func (m *memoryConversations) Store(ctx context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *conv
	m.conversations[conv.ID] = &c
	if _, ok := m.createdAt[conv.ID]; !ok {
		m.createdAt[conv.ID] = conv.CreatedAt
	}
	return nil
}

func (m *memoryConversations) GetAll(ctx context.Context, userID model.UserID) ([]*model.ConversationSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var summaries []*model.ConversationSummary
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			summaries = append(summaries, conv.Summary())
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (m *memoryConversations) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		conv  *model.Conversation
		score float64
	}
	var results []scored
	for _, conv := range m.conversations {
		if len(conv.Embedding) == 0 {
			continue
		}
		results = append(results, scored{conv: conv, score: cosineSimilarity(embedding, conv.Embedding)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })

	if limit > len(results) {
		limit = len(results)
	}
	conversations := make([]*model.Conversation, 0, limit)
	for _, r := range results[:limit] {
		conversations = append(conversations, r.conv)
	}
	return conversations, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type memoryContexts struct{ *Memory }

func (m *memoryContexts) Store(ctx context.Context, userID model.UserID, fact *model.ContextFact) error {
	if err := fact.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f := *fact
	m.facts[userID] = append(m.facts[userID], &f)
	return nil
}

func (m *memoryContexts) GetAll(ctx context.Context, userID model.UserID) ([]*model.ContextFact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	facts := make([]*model.ContextFact, len(m.facts[userID]))
	copy(facts, m.facts[userID])
	return facts, nil
}

type memoryProfiles struct{ *Memory }

func (m *memoryProfiles) Store(ctx context.Context, userID model.UserID, profile *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := *profile
	m.profiles[userID] = &p
	return nil
}

func (m *memoryProfiles) Get(ctx context.Context, userID model.UserID) (*model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[userID]
	if !ok {
		return nil, goerr.New("profile not found",
			goerr.V("user_id", userID), goerr.T(model.ErrTagNotFound))
	}
	return profile, nil
}
