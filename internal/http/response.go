package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/middleware"
)

// fail hands err to the error middleware.
func fail(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

func badRequest(c *gin.Context, field string, err error) {
	fail(c, apperrors.NewValidationError(field, err.Error()))
}

// bind decodes a JSON body, reporting failures as validation errors.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "body", err)
		return false
	}
	return true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name, err)
		return 0, false
	}
	return v, true
}

func pathUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, apperrors.NewValidationError("user_id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}
