package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/smartflow/backend/internal/config"
	"github.com/smartflow/backend/internal/handler"
	"github.com/smartflow/backend/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check, used by load balancers to
// verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes. Unauthenticated
// operations live under /v1/auth; /v1/me requires a valid access
// token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token: the presented token is revoked
	// and a new pair is issued.
	g.POST("/refresh", a.Refresh)
	// Logout takes a refresh token in the body and revokes that single
	// session; no JWT required.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// APIHandlers bundles the protected-route handlers so RegisterAPI does
// not take a dozen positional arguments.
type APIHandlers struct {
	Tasks       *handler.TaskHandler
	Logs        *handler.LogHandler
	Suggestions *handler.SuggestionHandler
	Activity    *handler.ActivityHandler
	Assistant   *handler.AssistantHandler
}

// RegisterAPI registers every protected endpoint under /v1. All routes
// pass through JWT auth and the Redis-backed rate limiter; read routes
// additionally pass through the response cache. With Redis absent both
// Redis middlewares degrade to pass-through.
func RegisterAPI(e *echo.Echo, jwtSecret string, rdb *redis.Client, rl config.RateLimitConfig, cc config.CacheConfig, h APIHandlers) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RateLimit(rl, rdb))
	g.Use(middleware.ResponseCache(cc, rdb))

	// Tasks
	g.POST("/tasks", h.Tasks.Create)
	g.GET("/tasks", h.Tasks.List)
	g.GET("/tasks/:id", h.Tasks.Get)
	g.PUT("/tasks/:id", h.Tasks.Update)
	g.DELETE("/tasks/:id", h.Tasks.Delete)

	// Plans
	g.GET("/tasks/:id/plan", h.Tasks.GetPlan)
	g.PUT("/tasks/:id/plan/:stepID", h.Tasks.UpdatePlanStep)

	// Productivity logs
	g.POST("/logs", h.Logs.Create)
	g.GET("/logs", h.Logs.List)

	// Suggestions
	g.GET("/suggestions", h.Suggestions.List)
	g.POST("/suggestions/:id/apply", h.Suggestions.Apply)

	// Audit trail
	g.GET("/activity", h.Activity.List)

	// Assistant
	g.POST("/chat/message", h.Assistant.Chat)
	g.POST("/agent/generate-plan", h.Assistant.GeneratePlan)
}
