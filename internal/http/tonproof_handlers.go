package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyalty-points-backend/internal/common/middleware"
	"loyalty-points-backend/internal/service/rewards"
)

// TonProofHandlers issues TON Connect proof payloads and verifies wallets.
type TonProofHandlers struct {
	rewards *rewards.Service
	limit   gin.HandlerFunc
}

func NewTonProofHandlers(svc *rewards.Service, limit gin.HandlerFunc) *TonProofHandlers {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	return &TonProofHandlers{rewards: svc, limit: limit}
}

func (h *TonProofHandlers) RegisterRoutes(r *gin.RouterGroup) {
	wallet := r.Group("/wallet")
	wallet.GET("/proof/payload", h.payload)
	wallet.POST("/verify", h.limit, h.verify)
}

type payloadResponse struct {
	Payload string `json:"payload"`
}

// @Summary Generate TON proof payload
// @Tags wallet
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} payloadResponse
// @Router /wallet/proof/payload [get]
func (h *TonProofHandlers) payload(c *gin.Context) {
	p, err := h.rewards.WalletPayload(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payloadResponse{Payload: p})
}

// @Summary Verify wallet
// @Description Checks the TON proof and address, then awards the one-time wallet bonus.
// @Tags wallet
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body rewards.VerifyRequest true "TON Connect proof"
// @Success 200 {object} rewards.WalletResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /wallet/verify [post]
func (h *TonProofHandlers) verify(c *gin.Context) {
	var req rewards.VerifyRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.rewards.ConnectWallet(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
