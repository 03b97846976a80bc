package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healingbudsglobal/walletgate/service"
)

// RouterConfig carries the collaborators the router wires together.
type RouterConfig struct {
	AuthService *service.AuthService
	Gate        *service.Gate
	AccessTTL   time.Duration
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(cfg.AuthService, cfg.AccessTTL)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/nonce", handlers.Nonce)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/redeem", handlers.Redeem)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Authenticated routes; any valid session may read its own state.
	api := router.Group("/api")
	api.Use(AuthMiddleware(cfg.AuthService))
	{
		api.GET("/me", handlers.Me)
	}

	// Gated routes behind the full access check.
	gated := router.Group("/api/gated")
	gated.Use(AuthMiddleware(cfg.AuthService), GateMiddleware(cfg.Gate))
	{
		gated.GET("/authorize", func(c *gin.Context) {
			session := SessionFromContext(c)
			c.JSON(http.StatusOK, gin.H{
				"authorized": true,
				"address":    session.Address,
			})
		})
	}

	return router
}
