package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/middleware"
	"github.com/scribehub/identity-core/internal/platform/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies
// through the service container.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	healthPings map[string]func(*gin.Context) error,
) {
	r.Use(cors.Default())
	// Every route sees the session, when one exists; the guard decides per
	// group what its absence means.
	r.Use(middleware.SessionResolver(services.Session, cfg.SessionCookieName, cfg.IsProduction))

	health := NewHealthHandler(healthPings)
	r.GET("/health", health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerAuthRoutes(r, cfg, services)
	setupAPIV1Routes(r, services)
}

// registerAuthRoutes sets up the interactive authentication surface.
// Credential-accepting routes share an IP rate limit.
func registerAuthRoutes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	sessions := newSessionManager(services.Session, cfg)
	authHandler := NewAuthHandler(services, sessions)
	directoryHandler := NewDirectoryHandler(services, sessions)
	ssoHandler := NewSSOHandler(services, sessions, cfg)

	// 5 attempts per minute per IP on anything that accepts credentials.
	rate, _ := limiter.NewRateFromFormatted("5-M")
	credentialLimit := middleware.RateLimit(limiter.New(memory.NewStore(), rate))

	auth := r.Group("/auth")
	{
		auth.POST("/register", credentialLimit, authHandler.Register)
		auth.POST("/login", credentialLimit, authHandler.Login)
		auth.POST("/guest", authHandler.GuestLogin)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/password",
			middleware.RequirePrincipal(services.Guard), middleware.RequireUser(),
			authHandler.ChangePassword)

		auth.POST("/directory/:instance/login", credentialLimit, directoryHandler.Login)

		sso := auth.Group("/sso/:instance")
		{
			sso.GET("/login", ssoHandler.BeginLogin)
			sso.GET("/callback", ssoHandler.Callback)
			sso.POST("/register", ssoHandler.ConfirmRegistration)
			sso.POST("/backchannel-logout", ssoHandler.BackchannelLogout)
		}
	}
}

// setupAPIV1Routes configures the authenticated /api/v1 group. Bearer tokens
// take precedence; otherwise the session guard resolves a user or guest.
func setupAPIV1Routes(r *gin.Engine, services *portssvc.ServiceContainer) {
	v1 := r.Group("/api/v1",
		middleware.BearerTokenAuth(services.Token, services.User),
		middleware.RequirePrincipal(services.Guard),
	)

	me := &MeHandler{}
	v1.GET("/me", me.Me)

	tokenHandler := NewTokenHandler(services.Token)
	tokens := v1.Group("/tokens", middleware.RequireUser())
	{
		tokens.POST("", tokenHandler.CreateToken)
		tokens.GET("", tokenHandler.ListTokens)
		tokens.DELETE("/:keyID", tokenHandler.RevokeToken)
	}
}
