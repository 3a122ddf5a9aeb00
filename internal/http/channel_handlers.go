package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyalty-points-backend/internal/common/middleware"
	"loyalty-points-backend/internal/service/rewards"
)

type ChannelHandlers struct {
	rewards *rewards.Service
	limit   gin.HandlerFunc
}

func NewChannelHandlers(svc *rewards.Service, limit gin.HandlerFunc) *ChannelHandlers {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	return &ChannelHandlers{rewards: svc, limit: limit}
}

func (h *ChannelHandlers) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/channel/verify", h.limit, h.verify)
}

// @Summary Verify channel membership
// @Description Asks Telegram whether the caller joined the configured channel and awards the one-time bonus.
// @Tags channel
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} rewards.ChannelResult
// @Failure 429 {object} middleware.ErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Router /channel/verify [post]
func (h *ChannelHandlers) verify(c *gin.Context) {
	res, err := h.rewards.VerifyChannel(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
