package middleware

import (
	"github.com/gin-gonic/gin"

	"loyalty-points-backend/internal/common/errors"
)

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == 0 {
			Abort(c, errors.NewUnauthorizedError("Telegram init data required"))
			return
		}
		c.Next()
	}
}

// RequireAdmin allows only the configured admin ids.
func RequireAdmin(adminIDs []int64) gin.HandlerFunc {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return func(c *gin.Context) {
		id := UserID(c)
		if id == 0 {
			Abort(c, errors.NewUnauthorizedError("Telegram init data required"))
			return
		}
		if _, ok := admins[id]; !ok {
			Abort(c, errors.NewForbiddenError("admin access required"))
			return
		}
		c.Next()
	}
}
