package profile

import (
	"context"
	"log/slog"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Refine extracts tagged facts from a transcript, appends them to the
// user's context store and regenerates the profile from the complete
// accumulated fact set. Zero extracted facts is a valid outcome that
// leaves the existing profile untouched. Fact appends are best-effort:
// one failed append is logged and the loop continues. If the fact
// fetch or synthesis fails, the previously stored profile remains
// authoritative.
func (u *UseCase) Refine(ctx context.Context, userID model.UserID, transcript string) error {
	unlock := u.locks.lock(userID)
	defer unlock()

	logger := logging.From(ctx).With(slog.Any("user_id", userID))

	facts, err := u.extractor.Extract(ctx, transcript)
	if err != nil {
		return goerr.Wrap(err, "failed to extract context facts",
			goerr.V("user_id", userID))
	}
	if len(facts) == 0 {
		logger.Info("no new context facts in transcript")
		return nil
	}

	stored := 0
	for _, fact := range facts {
		if err := u.contexts.Store(ctx, userID, fact); err != nil {
			logger.Warn("failed to store context fact, continuing",
				slog.Any("fact", fact), slog.Any("error", err))
			continue
		}
		stored++
	}
	if stored == 0 {
		return goerr.New("no context fact could be stored",
			goerr.V("user_id", userID), goerr.V("extracted", len(facts)),
			goerr.T(model.ErrTagStorage))
	}
	logger.Info("context facts stored",
		slog.Int("stored", stored), slog.Int("extracted", len(facts)))

	all, err := u.contexts.GetAll(ctx, userID)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch accumulated facts",
			goerr.V("user_id", userID))
	}
	if len(all) == 0 {
		logger.Info("no accumulated facts, keeping existing profile")
		return nil
	}

	generated, err := u.synthesizer.Synthesize(ctx, all)
	if err != nil {
		return goerr.Wrap(err, "failed to synthesize profile",
			goerr.V("user_id", userID))
	}

	if err := u.profiles.Store(ctx, userID, generated); err != nil {
		return goerr.Wrap(err, "failed to store profile",
			goerr.V("user_id", userID))
	}

	logger.Info("profile regenerated", slog.Int("facts", len(all)))
	return nil
}
