package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyalty-points-backend/internal/common/middleware"
	domain "loyalty-points-backend/internal/domain/user"
	usersvc "loyalty-points-backend/internal/service/user"
)

type UserHandlers struct {
	users *usersvc.Service
}

func NewUserHandlers(users *usersvc.Service) *UserHandlers {
	return &UserHandlers{users: users}
}

func (h *UserHandlers) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	users.POST("/sync", h.sync)
	users.GET("/me", h.me)
	users.GET("/me/transactions", h.transactions)
}

// @Summary Sync profile
// @Description Upsert the caller's profile from Telegram init data and refresh last activity.
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} user.Profile
// @Failure 401 {object} middleware.ErrorResponse
// @Router /users/sync [post]
func (h *UserHandlers) sync(c *gin.Context) {
	tgUser, ok := middleware.TelegramUser(c)
	if !ok {
		h.me(c)
		return
	}
	p, err := h.users.Sync(c.Request.Context(), domain.Identity{
		ID:        tgUser.ID,
		Username:  tgUser.Username,
		FirstName: tgUser.FirstName,
		LastName:  tgUser.LastName,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Current profile
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} user.Profile
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/me [get]
func (h *UserHandlers) me(c *gin.Context) {
	p, err := h.users.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Transaction history
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Param limit query int false "Max rows" default(50)
// @Success 200 {array} ledger.Transaction
// @Router /users/me/transactions [get]
func (h *UserHandlers) transactions(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	txs, err := h.users.History(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
