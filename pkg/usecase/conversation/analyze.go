package conversation

import (
	"context"
	"log/slog"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Analyze transcribes a stored recording, builds the conversation
// record and schedules profile refinement with the transcript. Missing
// audio is fatal for the invocation: the transcriber is never called
// and nothing downstream is scheduled. Profile refinement is enqueued
// only after the conversation write succeeds, so refinement never runs
// against a conversation that was not stored.
func (u *UseCase) Analyze(ctx context.Context, userID model.UserID, conversationID model.ConversationID) (string, error) {
	audio, err := u.audio.Get(ctx, conversationID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to fetch conversation audio",
			goerr.V("conversation_id", conversationID))
	}

	transcript, err := u.transcriber.Transcribe(ctx, audio.Data)
	if err != nil {
		return "", goerr.Wrap(err, "failed to transcribe conversation",
			goerr.V("conversation_id", conversationID))
	}
	logging.From(ctx).Info("conversation transcribed",
		slog.Any("conversation_id", conversationID),
		slog.Int("transcript_chars", len(transcript)))

	conv, err := u.factory.Create(ctx, userID, conversationID, transcript)
	if err != nil {
		return "", err
	}

	if err := u.conversations.Store(ctx, conv); err != nil {
		return "", goerr.Wrap(err, "failed to store conversation",
			goerr.V("conversation_id", conversationID))
	}

	refine, err := model.NewRefineTask(userID, transcript)
	if err != nil {
		return "", err
	}
	if err := u.scheduler.Enqueue(ctx, refine); err != nil {
		return "", goerr.Wrap(err, "failed to schedule profile refinement",
			goerr.V("user_id", userID))
	}

	logging.From(ctx).Info("conversation stored, profile refinement queued",
		slog.Any("conversation_id", conversationID),
		slog.String("title", conv.Title))

	return transcript, nil
}
