package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyalty-points-backend/internal/common/middleware"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/service/leaderboard"
)

type LeaderboardHandlers struct {
	boards *leaderboard.Service
}

func NewLeaderboardHandlers(svc *leaderboard.Service) *LeaderboardHandlers {
	return &LeaderboardHandlers{boards: svc}
}

func (h *LeaderboardHandlers) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/leaderboard", h.view)
	r.GET("/leaderboard/my-rank", h.myRank)
}

// @Summary Leaderboard
// @Description Windowed view around the caller: top block, optional gap marker (rank -1), neighborhood.
// @Tags leaderboard
// @Produce json
// @Security TelegramInitData
// @Param period query string false "daily, weekly or all_time" default(all_time)
// @Success 200 {object} leaderboard.View
// @Failure 400 {object} middleware.ErrorResponse
// @Router /leaderboard [get]
func (h *LeaderboardHandlers) view(c *gin.Context) {
	period, err := ledger.ParsePeriod(c.Query("period"))
	if err != nil {
		badRequest(c, "period", err)
		return
	}
	var requester *int64
	if id := middleware.UserID(c); id != 0 {
		requester = &id
	}
	v, err := h.boards.BuildView(c.Request.Context(), period, requester)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary My weekly rank
// @Tags leaderboard
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} leaderboard.MyRank
// @Router /leaderboard/my-rank [get]
func (h *LeaderboardHandlers) myRank(c *gin.Context) {
	rank, err := h.boards.MyRank(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rank)
}
