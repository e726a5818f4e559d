package conversation

import (
	"context"
	"log/slog"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// StoreAudio persists a raw recording under a freshly generated
// conversation ID and schedules the analyze and evaluate stages as
// independent tasks. It returns once persistence and scheduling are
// acknowledged; the two downstream stages run concurrently with no
// ordering guarantee between them.
func (u *UseCase) StoreAudio(ctx context.Context, userID model.UserID, data []byte) (model.ConversationID, error) {
	audio := &model.ConversationAudio{
		UserID:         userID,
		ConversationID: model.NewConversationID(),
		Data:           data,
	}
	if err := audio.Validate(); err != nil {
		return "", err
	}

	if err := u.audio.Store(ctx, audio); err != nil {
		return "", goerr.Wrap(err, "failed to store conversation audio",
			goerr.V("user_id", userID))
	}

	analyze, err := model.NewAnalyzeTask(userID, audio.ConversationID)
	if err != nil {
		return "", err
	}
	if err := u.scheduler.Enqueue(ctx, analyze); err != nil {
		return "", goerr.Wrap(err, "failed to schedule conversation analysis",
			goerr.V("conversation_id", audio.ConversationID))
	}

	evaluate, err := model.NewEvaluateTask(userID, audio.ConversationID)
	if err != nil {
		return "", err
	}
	if err := u.scheduler.Enqueue(ctx, evaluate); err != nil {
		return "", goerr.Wrap(err, "failed to schedule audio evaluation",
			goerr.V("conversation_id", audio.ConversationID))
	}

	logging.From(ctx).Info("conversation audio stored, analysis and evaluation queued",
		slog.Any("user_id", userID),
		slog.Any("conversation_id", audio.ConversationID),
		slog.Int("bytes", len(data)))

	return audio.ConversationID, nil
}
