package conversation

import (
	"context"

	"github.com/Heterod0x/oto/pkg/model"
)

// List retrieves the summary view of a user's conversations, newest
// first.
func (u *UseCase) List(ctx context.Context, userID model.UserID) ([]*model.ConversationSummary, error) {
	return u.conversations.GetAll(ctx, userID)
}
