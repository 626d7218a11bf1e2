package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avelkov/task-manager/internal/config"
	"github.com/avelkov/task-manager/internal/handler"
	"github.com/avelkov/task-manager/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints under /auth.  The
// whole group sits behind the Redis token bucket; the limiter degrades to
// a pass-through when Redis is unavailable.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/auth")
	g.Use(middleware.NewTokenBucket(rlCfg, rdb))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token read from the cookie side channel.
	g.POST("/refresh-token", a.Refresh)
	// Revokes a token from the body, falling back to the cookie.  Idempotent.
	g.POST("/revoke-token", a.Revoke)
}

// RegisterAPI registers the protected task and team endpoints.  Every
// route in the group passes through the JWT middleware, which validates
// signature, issuer, audience and expiry of the bearer token.
func RegisterAPI(e *echo.Echo, cfg config.Config, a *handler.AuthHandler, t *handler.TaskHandler, tm *handler.TeamHandler) {
	api := e.Group("")
	api.Use(middleware.JWTAuth(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience))

	api.GET("/me", a.Me)

	api.GET("/tasks", t.List)
	api.GET("/tasks/mine", t.Mine)
	api.GET("/tasks/:id", t.Get)
	api.POST("/tasks", t.Create)
	api.PUT("/tasks/:id", t.Update)
	api.DELETE("/tasks/:id", t.Delete)

	api.POST("/teams", tm.Create)
	api.GET("/teams/:id", tm.Get)
}
