package conversation

import (
	"context"
	"log/slog"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Evaluate scores a stored recording and applies the resulting reward
// points to the user's ledger. The two detectors run independently;
// both must complete. A detector returning a value outside [0,1]
// violates its contract and is clamped defensively. A ledger failure
// is surfaced to the queue for retry, never swallowed.
func (u *UseCase) Evaluate(ctx context.Context, userID model.UserID, conversationID model.ConversationID) (int, error) {
	audio, err := u.audio.Get(ctx, conversationID)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to fetch conversation audio",
			goerr.V("conversation_id", conversationID))
	}

	ratio, err := u.vad.VoiceActivityRatio(ctx, audio.Data)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to detect voice activity",
			goerr.V("conversation_id", conversationID))
	}

	score, err := u.quality.SoundQualityScore(ctx, audio.Data)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to evaluate sound quality",
			goerr.V("conversation_id", conversationID))
	}

	ratio = clamp01(ratio)
	score = clamp01(score)
	point := int(10*ratio + 10*score)

	logging.From(ctx).Info("audio evaluated",
		slog.Any("conversation_id", conversationID),
		slog.Float64("voice_activity_ratio", ratio),
		slog.Float64("sound_quality_score", score),
		slog.Int("point", point))

	if err := u.ledger.ApplyPointDelta(ctx, userID, point); err != nil {
		return 0, goerr.Wrap(err, "failed to apply point delta",
			goerr.V("user_id", userID), goerr.V("point", point))
	}
	u.metrics.AddPoints(point)

	return point, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
