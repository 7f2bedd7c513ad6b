package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sunrun/credithub/internal/config"
	"sunrun/credithub/internal/handler/middleware"
	jwtpkg "sunrun/credithub/pkg/jwt"
)

// SetupRouter wires every route. creditsHandler is nil when no store backend
// is configured; the ledger routes then answer 503. adminHandler is nil when
// admin access is disabled.
func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	creditsHandler *CreditsHandler,
	adminHandler *AdminHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	storeReady := creditsHandler != nil && cfg.Store.Configured()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": storeReady})
	})

	// Ledger action endpoint
	credits := r.Group("/api/sunrun")
	credits.Use(middleware.RequireStore(storeReady))
	{
		credits.POST("/credits", creditsHandler.Handle)
	}

	// Admin routes (JWT + admin check)
	if adminHandler != nil && jwtManager != nil {
		admin := r.Group("/api/v1/admin")
		admin.Use(middleware.JWTAuth(jwtManager))
		admin.Use(middleware.AdminAuth(cfg.Admin.UserIDs))
		admin.Use(middleware.RequireStore(storeReady))
		{
			admin.POST("/redeem-codes", adminHandler.CreateRedeemCodes)
			admin.GET("/redeem-codes", adminHandler.ListRedeemCodes)
			admin.GET("/redeem-codes/:code", adminHandler.GetRedeemCode)
		}
	}

	return r
}
