package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/Heterod0x/oto/pkg/adapter"
	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// objectAudioRepo implements AudioRepository on an object store. One
// object per conversation, `<conversationID>.wav`.
type objectAudioRepo struct {
	storage adapter.Storage
}

// NewAudio creates an AudioRepository on top of the given object
// storage adapter.
func NewAudio(storage adapter.Storage) AudioRepository {
	return &objectAudioRepo{storage: storage}
}

func audioKey(id model.ConversationID) string {
	return fmt.Sprintf("%s.wav", id)
}

func (r *objectAudioRepo) Store(ctx context.Context, audio *model.ConversationAudio) error {
	if err := audio.Validate(); err != nil {
		return err
	}

	w, err := r.storage.Put(ctx, audioKey(audio.ConversationID))
	if err != nil {
		return goerr.Wrap(err, "failed to open audio object for write",
			goerr.V("conversation_id", audio.ConversationID), goerr.T(model.ErrTagStorage))
	}
	if _, err := w.Write(audio.Data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write audio object",
			goerr.V("conversation_id", audio.ConversationID), goerr.T(model.ErrTagStorage))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize audio object",
			goerr.V("conversation_id", audio.ConversationID), goerr.T(model.ErrTagStorage))
	}

	return nil
}

func (r *objectAudioRepo) Get(ctx context.Context, id model.ConversationID) (*model.ConversationAudio, error) {
	reader, err := r.storage.Get(ctx, audioKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(err, "conversation audio not found",
				goerr.V("conversation_id", id), goerr.T(model.ErrTagNotFound))
		}
		return nil, goerr.Wrap(err, "failed to open audio object",
			goerr.V("conversation_id", id), goerr.T(model.ErrTagStorage))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read audio object",
			goerr.V("conversation_id", id), goerr.T(model.ErrTagStorage))
	}

	return &model.ConversationAudio{
		ConversationID: id,
		Data:           data,
	}, nil
}
