package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
)

const (
	InitDataHeader = "init_data"

	userKey   = "user"
	userIDKey = "user_id"
)

// TelegramInitData validates the Mini App init data and stores the Telegram
// user in the context. A zero ttl disables the auth_date expiry check.
func TelegramInitData(botToken string, ttl time.Duration) gin.HandlerFunc {
	log := logger.With("auth")
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			Abort(c, errors.NewUnauthorizedError("Telegram init data required"))
			return
		}

		if err := initdata.Validate(raw, botToken, ttl); err != nil {
			log.Debug().Err(err).Msg("Init data validation failed")
			Abort(c, errors.NewUnauthorizedError("invalid init data"))
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			Abort(c, errors.New(errors.ErrCodeBadRequest, "Failed to parse init data"))
			return
		}
		if parsed.User.ID <= 0 {
			Abort(c, errors.NewUnauthorizedError("init data has no user"))
			return
		}

		c.Set(userKey, parsed.User)
		c.Set(userIDKey, parsed.User.ID)
		c.Next()
	}
}

// TelegramUser returns the user stored by TelegramInitData.
func TelegramUser(c *gin.Context) (initdata.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return initdata.User{}, false
	}
	u, ok := v.(initdata.User)
	return u, ok
}

// UserID returns the authenticated Telegram user id, or 0.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
