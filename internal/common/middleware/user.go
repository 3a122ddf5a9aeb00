package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	domain "loyalty-points-backend/internal/domain/user"
)

// ProfileSyncer is satisfied by user.Service.
type ProfileSyncer interface {
	Sync(ctx context.Context, id domain.Identity) (*domain.Profile, error)
}

// TouchProfile upserts the caller's profile so every authenticated request
// refreshes names and last_active_at.
func TouchProfile(users ProfileSyncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tgUser, ok := TelegramUser(c)
		if !ok {
			c.Next()
			return
		}

		_, err := users.Sync(c.Request.Context(), domain.Identity{
			ID:        tgUser.ID,
			Username:  tgUser.Username,
			FirstName: tgUser.FirstName,
			LastName:  tgUser.LastName,
		})
		if err != nil {
			Abort(c, err)
			return
		}
		c.Next()
	}
}
