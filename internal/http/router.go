package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"loyalty-points-backend/internal/common/middleware"
	"loyalty-points-backend/internal/platform/metrics"
)

// Registrar mounts a handler group.
type Registrar interface {
	RegisterRoutes(r *gin.RouterGroup)
}

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

type RouterConfig struct {
	Origin      string
	BotToken    string
	InitDataTTL time.Duration
	AdminIDs    []int64
	// Profiles syncs the caller's profile on every authenticated request; nil skips it.
	Profiles middleware.ProfileSyncer
	Checks   map[string]Check
}

// NewRouter builds the gin engine: ops endpoints at the root, user routes
// under /api/v1 and admin routes under /api/v1/admin.
func NewRouter(cfg RouterConfig, user []Registrar, admin []Registrar) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Metrics(),
		cors.New(cors.Config{
			AllowOrigins:     []string{cfg.Origin},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.InitDataHeader, "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	r.GET("/health", health)
	r.GET("/live", health)
	r.GET("/ready", ready(cfg.Checks))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.TelegramInitData(cfg.BotToken, cfg.InitDataTTL), middleware.RequireAuth())
	if cfg.Profiles != nil {
		api.Use(middleware.TouchProfile(cfg.Profiles))
	}
	for _, h := range user {
		h.RegisterRoutes(api)
	}

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin(cfg.AdminIDs))
	for _, h := range admin {
		h.RegisterRoutes(adminGroup)
	}

	return r
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ready(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"ready": status == http.StatusOK, "checks": results})
	}
}
