package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clubhub/user-service/internal/api/handler"
	"github.com/clubhub/user-service/internal/api/middleware"
	"github.com/clubhub/user-service/internal/core/domain"
	"github.com/clubhub/user-service/internal/core/ports"
	"github.com/clubhub/user-service/internal/core/service"
	mongodb "github.com/clubhub/user-service/internal/infrastructure/db/mongo"
	redisdb "github.com/clubhub/user-service/internal/infrastructure/db/redis"
	httphandlers "github.com/clubhub/user-service/internal/infrastructure/http/handlers"
)

// RouterConfig carries the knobs the router needs beyond its collaborators.
type RouterConfig struct {
	JWTSecret       string
	RateLimit       int
	RateLimitWindow time.Duration
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(
	db *mongo.Database,
	rdb *redis.Client,
	idp ports.IdentityProvider,
	notifier ports.Notifier,
	cfg RouterConfig,
	log zerolog.Logger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("users"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	userService := service.NewUserService(userRepo, idp, notifier, log)
	userHandler := handler.NewUserHandler(userService)

	authMiddleware := middleware.Auth(cfg.JWTSecret)
	adminOnly := middleware.RBAC(string(domain.RoleAdmin))
	anyRole := middleware.RBAC(string(domain.RoleAdmin), string(domain.RoleUser))
	rateLimit := middleware.RateLimit(redisdb.NewRateLimiter(rdb, cfg.RateLimit, cfg.RateLimitWindow), log)

	// --- User routes ---
	users := e.Group("/api/v1/users", authMiddleware)

	users.GET("/me", userHandler.GetMe, anyRole)
	users.PUT("/me", userHandler.UpdateMe, anyRole, rateLimit)

	users.POST("", userHandler.Create, adminOnly, rateLimit)
	users.GET("", userHandler.List, adminOnly)
	users.GET("/:id", userHandler.Get, adminOnly)
	users.PUT("/:id", userHandler.Update, adminOnly, rateLimit)
	users.PATCH("/:id/credentials", userHandler.UpdateCredentials, adminOnly, rateLimit)
	users.DELETE("/:id", userHandler.Delete, adminOnly, rateLimit)

	// --- Metrics ---
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Health probes (no auth required) ---
	healthHandler := httphandlers.NewHealthHandler()
	healthDepsHandler := httphandlers.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	return e
}
