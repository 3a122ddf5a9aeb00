package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyalty-points-backend/internal/common/middleware"
	"loyalty-points-backend/internal/common/validation"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/service/analytics"
	"loyalty-points-backend/internal/service/attribution"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
	"loyalty-points-backend/internal/service/retention"
)

// AdminHandlers serves the operator dashboard. Routes are mounted behind
// RequireAdmin.
type AdminHandlers struct {
	writer      *ledgersvc.Writer
	analytics   *analytics.Service
	retention   *retention.Service
	attribution *attribution.Service
	cal         *ledger.Calendar
}

func NewAdminHandlers(
	writer *ledgersvc.Writer,
	analyticsSvc *analytics.Service,
	retentionSvc *retention.Service,
	attributionSvc *attribution.Service,
	cal *ledger.Calendar,
) *AdminHandlers {
	return &AdminHandlers{
		writer:      writer,
		analytics:   analyticsSvc,
		retention:   retentionSvc,
		attribution: attributionSvc,
		cal:         cal,
	}
}

func (h *AdminHandlers) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/points/adjust", h.adjust)

	a := r.Group("/analytics")
	a.GET("/retention", h.retentionReport)
	a.GET("/campaigns", h.campaigns)
	a.GET("/referrals", h.referrals)
	a.GET("/overview", h.overview)
	a.GET("/points", h.points)
	a.GET("/funnel", h.funnel)
	a.GET("/features", h.features)
	a.GET("/engagement", h.engagement)
	a.GET("/users", h.users)
	a.GET("/leaderboards", h.leaderboards)

	n := r.Group("/nudges")
	n.GET("/candidates", h.nudgeCandidates)
	n.POST("/:user_id/notified", h.markNotified)
	n.POST("/:user_id/opt-out", h.optOut)
}

type adjustRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Note   string `json:"note"`
}

type adjustResponse struct {
	UserID   int64 `json:"user_id"`
	NewTotal int64 `json:"new_total"`
}

// @Summary Adjust points
// @Description Records an admin_adjustment of any non-zero signed amount.
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body adjustRequest true "Adjustment"
// @Success 200 {object} adjustResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/points/adjust [post]
func (h *AdminHandlers) adjust(c *gin.Context) {
	var req adjustRequest
	if !bind(c, &req) {
		return
	}
	if err := validation.ValidateNote(req.Note); err != nil {
		badRequest(c, "note", err)
		return
	}
	meta := ledger.AdminAdjustmentMeta{Note: req.Note, AdminID: middleware.UserID(c)}
	total, err := h.writer.AwardPoints(c.Request.Context(), req.UserID, req.Amount, ledger.ReasonAdminAdjustment, meta)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, adjustResponse{UserID: req.UserID, NewTotal: total})
}

// @Summary Retention cohorts
// @Description Weekly signup cohorts with D1/D7/D30 retention; young cohorts report N/A.
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} retention.CohortStat
// @Router /admin/analytics/retention [get]
func (h *AdminHandlers) retentionReport(c *gin.Context) {
	cohorts, err := h.retention.Cohorts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cohorts": cohorts})
}

// @Summary Campaign attribution
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} attribution.CampaignReport
// @Router /admin/analytics/campaigns [get]
func (h *AdminHandlers) campaigns(c *gin.Context) {
	from, to, err := validation.ParseDateRange(c.Query("from"), c.Query("to"), h.cal.Location())
	if err != nil {
		badRequest(c, "date_range", err)
		return
	}
	report, err := h.attribution.CampaignStats(c.Request.Context(), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Referral statistics
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} attribution.ReferralReport
// @Router /admin/analytics/referrals [get]
func (h *AdminHandlers) referrals(c *gin.Context) {
	report, err := h.attribution.ReferralStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Overview
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} analytics.Overview
// @Router /admin/analytics/overview [get]
func (h *AdminHandlers) overview(c *gin.Context) {
	out, err := h.analytics.Overview(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Points economy
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} analytics.PointsEconomy
// @Router /admin/analytics/points [get]
func (h *AdminHandlers) points(c *gin.Context) {
	from, to, err := validation.ParseDateRange(c.Query("from"), c.Query("to"), h.cal.Location())
	if err != nil {
		badRequest(c, "date_range", err)
		return
	}
	out, err := h.analytics.Points(c.Request.Context(), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Conversion funnel
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} analytics.Funnel
// @Router /admin/analytics/funnel [get]
func (h *AdminHandlers) funnel(c *gin.Context) {
	out, err := h.analytics.Funnel(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Feature usage
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} analytics.FeatureUsage
// @Router /admin/analytics/features [get]
func (h *AdminHandlers) features(c *gin.Context) {
	out, err := h.analytics.Features(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"features": out})
}

// @Summary Daily engagement
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} analytics.DailyActivity
// @Router /admin/analytics/engagement [get]
func (h *AdminHandlers) engagement(c *gin.Context) {
	out, err := h.analytics.Engagement(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": out})
}

// @Summary User growth
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param days query int false "Trailing days" default(30)
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {array} analytics.DailyUsers
// @Router /admin/analytics/users [get]
func (h *AdminHandlers) users(c *gin.Context) {
	days, ok := queryInt(c, "days", 0)
	if !ok {
		return
	}
	out, err := h.analytics.UserGrowth(c.Request.Context(), days, c.Query("from"), c.Query("to"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": out})
}

// @Summary Admin leaderboards
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} analytics.AdminLeaderboards
// @Router /admin/analytics/leaderboards [get]
func (h *AdminHandlers) leaderboards(c *gin.Context) {
	out, err := h.analytics.Leaderboards(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Nudge candidates
// @Description Push-enabled users inactive for 24h and not notified in 48h.
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param limit query int false "Batch size" default(20)
// @Success 200 {array} user.NudgeCandidate
// @Router /admin/nudges/candidates [get]
func (h *AdminHandlers) nudgeCandidates(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	out, err := h.analytics.NudgeCandidates(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": out})
}

// @Summary Record a sent nudge
// @Tags admin
// @Security TelegramInitData
// @Param user_id path int true "Telegram user id"
// @Success 204
// @Router /admin/nudges/{user_id}/notified [post]
func (h *AdminHandlers) markNotified(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	if err := h.analytics.MarkNotified(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Disable nudges for a user
// @Description Used when the bot is blocked by the user.
// @Tags admin
// @Security TelegramInitData
// @Param user_id path int true "Telegram user id"
// @Success 204
// @Router /admin/nudges/{user_id}/opt-out [post]
func (h *AdminHandlers) optOut(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	if err := h.analytics.OptOut(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
