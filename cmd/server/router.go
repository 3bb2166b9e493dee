package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/accounts/internal/config"
	"github.com/thereayou/accounts/internal/handlers"
	"github.com/thereayou/accounts/internal/logging"
	"github.com/thereayou/accounts/internal/middleware"
	"github.com/thereayou/accounts/internal/services"
)

// APIEndpoints registers the account routes on r.
func APIEndpoints(r *gin.Engine, svc services.AuthService, log logging.Logger, cfg config.Config) {
	authH := handlers.NewAuthHandler(svc, log)
	userH := handlers.NewUserHandler(svc, log, cfg.AvatarMaxBytes)
	requireAuth := middleware.AuthMiddleware(svc, log)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.Static("/avatars", cfg.AvatarDir)

	users := r.Group("/users")
	{
		users.POST("/signup", authH.Signup)
		users.POST("/login", authH.Login)
		users.POST("/verify", authH.VerifyResend)
		users.GET("/verify/:verificationToken", authH.VerifyConsume)
	}

	authed := users.Group("", requireAuth)
	{
		authed.GET("/current", userH.Current)
		authed.GET("/logout", authH.Logout)
		authed.PATCH("", userH.UpdateSubscription)
		authed.PATCH("/avatars", userH.UpdateAvatar)
	}
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(svc services.AuthService, log logging.Logger, cfg config.Config) *gin.Engine {
	router := gin.Default()
	router.MaxMultipartMemory = cfg.AvatarMaxBytes
	APIEndpoints(router, svc, log, cfg)
	return router
}

// Handler wraps router with CORS when origins are configured.
func Handler(router http.Handler, cfg config.Config) http.Handler {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return router
	}
	return middleware.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials)(router)
}
