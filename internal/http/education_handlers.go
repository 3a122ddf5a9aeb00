package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loyalty-points-backend/internal/common/middleware"
	"loyalty-points-backend/internal/service/education"
)

type EducationHandlers struct {
	education *education.Service
}

func NewEducationHandlers(svc *education.Service) *EducationHandlers {
	return &EducationHandlers{education: svc}
}

func (h *EducationHandlers) RegisterRoutes(r *gin.RouterGroup) {
	edu := r.Group("/education")
	edu.GET("/progress", h.progress)
	edu.POST("/progress", h.saveSlide)
	edu.POST("/complete", h.complete)
}

// @Summary Read module progress
// @Description With module_id returns that module (null when not started), otherwise every module.
// @Tags education
// @Produce json
// @Security TelegramInitData
// @Param module_id query string false "Module"
// @Success 200 {array} education.Progress
// @Router /education/progress [get]
func (h *EducationHandlers) progress(c *gin.Context) {
	userID := middleware.UserID(c)
	if moduleID := c.Query("module_id"); moduleID != "" {
		p, err := h.education.Progress(c.Request.Context(), userID, moduleID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"progress": p})
		return
	}

	list, err := h.education.ListProgress(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": list})
}

type slideRequest struct {
	ModuleID   string `json:"module_id" binding:"required"`
	SlideIndex int    `json:"slide_index"`
}

// @Summary Save slide position
// @Tags education
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body slideRequest true "Position"
// @Success 200 {object} education.Progress
// @Router /education/progress [post]
func (h *EducationHandlers) saveSlide(c *gin.Context) {
	var req slideRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.education.SaveSlide(c.Request.Context(), middleware.UserID(c), req.ModuleID, req.SlideIndex)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Complete module
// @Tags education
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body education.CompleteRequest true "Completion"
// @Success 200 {object} education.CompleteResult
// @Router /education/complete [post]
func (h *EducationHandlers) complete(c *gin.Context) {
	var req education.CompleteRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.education.Complete(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
