package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/transport/http/handlers"
	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth     *usecase.AuthService
	Users    *usecase.UserService
	Sessions *usecase.SessionService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Signer      *security.TokenSigner
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(deps.Config.App.CORSAllowedOrigins))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())

	sessionAuth := middleware.RequireSession(deps.Services.Auth)
	bearerAuth := middleware.RequireBearer(deps.Signer)
	optionalAuth := middleware.OptionalAuth(deps.Signer, deps.Services.Auth)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(
			deps.Services.Auth,
			deps.Services.Sessions,
			deps.Signer.TTL(),
			handlers.WithSecureCookies(deps.Config.App.Env == "production"),
		)
		authHandler.RegisterRoutes(authGroup, sessionAuth, optionalAuth,
			buildLimitMiddlewares(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts),
			buildLimitMiddlewares(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts),
			buildLimitMiddlewares(deps, "password_change_ip", deps.Config.RateLimit.PasswordChangeMaxAttempts),
		)

		sessionHandler := handlers.NewSessionHandler(deps.Services.Auth, deps.Services.Sessions)
		sessionGroup := api.Group("/sessions")
		sessionGroup.Use(sessionAuth)
		sessionHandler.RegisterRoutes(sessionGroup)

		// Bearer-token surface for service-to-service calls: stateless
		// verification plus an ownership check with admin bypass.
		usersGroup := api.Group("/users")
		usersGroup.Use(bearerAuth)
		usersGroup.GET("/:id/sessions",
			middleware.RequireOwnership(func(c *gin.Context) string { return c.Param("id") }),
			sessionHandler.ListUserSessions,
		)

		adminGroup := api.Group("/admin")
		adminGroup.Use(bearerAuth, middleware.RequireRole(domain.RoleAdmin))

		adminHandler := handlers.NewAdminHandler(deps.Services.Users)
		adminHandler.RegisterRoutes(adminGroup)

		adminGroup.GET("/sessions/stats", sessionHandler.GlobalStats)
		adminGroup.POST("/sessions/cleanup", sessionHandler.Cleanup)
		adminGroup.DELETE("/sessions/:session_id", sessionHandler.ForceRevokeSession)
	}

	return r
}

func buildLimitMiddlewares(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
