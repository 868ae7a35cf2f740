package router

import (
	"net/http"
	"time"

	"github.com/anonto42/gatherly/backend/internal/coordinator"
	"github.com/anonto42/gatherly/backend/internal/handlers"
	"github.com/anonto42/gatherly/backend/internal/middleware"
	"github.com/anonto42/gatherly/backend/internal/repositories"
	"github.com/anonto42/gatherly/backend/pkg/config"
	"github.com/anonto42/gatherly/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Users       repositories.UserRepository
	// Firebase is optional; nil disables Firebase tokens and login.
	Firebase middleware.IDTokenVerifier
	// Stores backs /ready; nil reports ready.
	Stores    handlers.Pinger
	JWTSecret string
	TokenTTL  time.Duration
	Log       zerolog.Logger
}

// New builds the echo instance with middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(d.Log)
	config.SetupMiddleware(e, d.Log)
	SetupRoutes(e, d)
	return e
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, d Deps) {
	e.GET("/health", handlers.HealthCheck)
	e.GET("/ready", handlers.ReadinessCheck(d.Stores))

	authGroup := e.Group("/api/v1/auth")
	handlers.NewAuthHandler(d.Users, d.Firebase, d.JWTSecret, d.TokenTTL, d.Log).RegisterAuthRoutes(authGroup)

	auths := []middleware.Authenticator{middleware.JWTAuthenticator(d.JWTSecret)}
	if d.Firebase != nil {
		auths = append(auths, middleware.FirebaseAuthenticator(d.Firebase, d.Users))
	}
	api := e.Group("/api/v1")
	api.Use(middleware.RequireAuth(auths...))

	handlers.NewUserHandler(d.Users).RegisterProfileRoutes(api)
	handlers.NewEventHandler(d.Coordinator).RegisterEventRoutes(api)
	handlers.NewFriendshipHandler(d.Coordinator, d.Users).RegisterFriendshipRoutes(api)
	handlers.NewNotificationHandler(d.Coordinator).RegisterNotificationRoutes(api)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Route not found")
	})
}
