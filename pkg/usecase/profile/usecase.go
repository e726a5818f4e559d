// Package profile orchestrates user profile refinement: extracting
// tagged facts from transcripts and regenerating the profile from the
// full accumulated fact set.
package profile

import (
	"sync"

	"github.com/Heterod0x/oto/pkg/agent"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/repository"
)

// UseCase provides profile refinement and retrieval.
type UseCase struct {
	extractor   agent.ContextExtractor
	synthesizer agent.ProfileSynthesizer
	contexts    repository.ContextRepository
	profiles    repository.ProfileRepository
	locks       userLocks
}

// New creates a profile UseCase instance.
func New(
	extractor agent.ContextExtractor,
	synthesizer agent.ProfileSynthesizer,
	contexts repository.ContextRepository,
	profiles repository.ProfileRepository,
) *UseCase {
	return &UseCase{
		extractor:   extractor,
		synthesizer: synthesizer,
		contexts:    contexts,
		profiles:    profiles,
	}
}

// userLocks serializes refinement per user. The fact store is safe for
// concurrent appends, but the profile row is a read-modify-write cycle:
// without the lock, a regeneration could read a fact set missing facts
// appended by a concurrent refinement and then overwrite its result.
type userLocks struct {
	mu    sync.Mutex
	locks map[model.UserID]*sync.Mutex
}

func (l *userLocks) lock(userID model.UserID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[model.UserID]*sync.Mutex)
	}
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
