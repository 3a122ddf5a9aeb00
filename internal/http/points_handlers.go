package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyalty-points-backend/internal/common/middleware"
	"loyalty-points-backend/internal/service/rewards"
)

// PointsHandlers serves the self-service reward flows.
type PointsHandlers struct {
	rewards *rewards.Service
	limit   gin.HandlerFunc
}

// NewPointsHandlers wraps the reward endpoints with limit; nil disables it.
func NewPointsHandlers(svc *rewards.Service, limit gin.HandlerFunc) *PointsHandlers {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	return &PointsHandlers{rewards: svc, limit: limit}
}

func (h *PointsHandlers) RegisterRoutes(r *gin.RouterGroup) {
	points := r.Group("/points")
	points.POST("/welcome", h.limit, h.welcome)
	points.POST("/daily-login", h.limit, h.dailyLogin)
	points.GET("/daily-login", h.dailyLoginStatus)
	points.POST("/spin", h.limit, h.spin)
}

// @Summary Claim welcome bonus
// @Tags points
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} rewards.ClaimResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /points/welcome [post]
func (h *PointsHandlers) welcome(c *gin.Context) {
	res, err := h.rewards.Welcome(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Daily check-in
// @Description Records today's check-in in the reference timezone and awards 100 + streak*10.
// @Tags points
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} rewards.DailyLoginResult
// @Router /points/daily-login [post]
func (h *PointsHandlers) dailyLogin(c *gin.Context) {
	res, err := h.rewards.DailyLogin(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Daily check-in status
// @Tags points
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} rewards.DailyLoginStatus
// @Router /points/daily-login [get]
func (h *PointsHandlers) dailyLoginStatus(c *gin.Context) {
	res, err := h.rewards.DailyLoginStatus(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Daily spin
// @Tags points
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} rewards.SpinResult
// @Failure 429 {object} middleware.ErrorResponse "Already spun today"
// @Router /points/spin [post]
func (h *PointsHandlers) spin(c *gin.Context) {
	res, err := h.rewards.Spin(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
