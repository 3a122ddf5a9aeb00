package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyalty-points-backend/internal/common/middleware"
	"loyalty-points-backend/internal/service/attribution"
)

type AttributionHandlers struct {
	attribution *attribution.Service
}

func NewAttributionHandlers(svc *attribution.Service) *AttributionHandlers {
	return &AttributionHandlers{attribution: svc}
}

func (h *AttributionHandlers) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/referrals", h.referral)
	r.POST("/campaigns/attribution", h.campaign)
}

type referralRequest struct {
	ReferrerID int64 `json:"referrer_id" binding:"required"`
}

// @Summary Record referral
// @Description The caller is the referee. A referee keeps their first referrer.
// @Tags attribution
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body referralRequest true "Referrer"
// @Success 200 {object} attribution.ReferralOutcome
// @Failure 400 {object} middleware.ErrorResponse
// @Router /referrals [post]
func (h *AttributionHandlers) referral(c *gin.Context) {
	var req referralRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.attribution.RecordReferral(c.Request.Context(), req.ReferrerID, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type campaignRequest struct {
	CampaignID string `json:"campaign_id" binding:"required"`
}

type campaignResponse struct {
	Recorded bool `json:"recorded"`
}

// @Summary Record campaign attribution
// @Tags attribution
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body campaignRequest true "Campaign"
// @Success 200 {object} campaignResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /campaigns/attribution [post]
func (h *AttributionHandlers) campaign(c *gin.Context) {
	var req campaignRequest
	if !bind(c, &req) {
		return
	}
	recorded, err := h.attribution.AttributeCampaign(c.Request.Context(), middleware.UserID(c), req.CampaignID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, campaignResponse{Recorded: recorded})
}
