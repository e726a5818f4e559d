package profile

import (
	"context"

	"github.com/Heterod0x/oto/pkg/model"
)

// Get retrieves the user's current profile. Returns a not_found tagged
// error when no profile has been generated yet.
func (u *UseCase) Get(ctx context.Context, userID model.UserID) (*model.Profile, error) {
	return u.profiles.Get(ctx, userID)
}
