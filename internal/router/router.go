package router

import (
	"time"

	"github.com/devvault/backend/internal/handlers"
	"github.com/devvault/backend/internal/metrics"
	"github.com/devvault/backend/internal/middleware"
	"github.com/devvault/backend/internal/models"
	"github.com/devvault/backend/internal/realtime"
	"github.com/devvault/backend/internal/repositories"
	"github.com/devvault/backend/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Dependencies are the collaborators the routes are built from
type Dependencies struct {
	Users         repositories.UserRepository
	Notifications repositories.NotificationRepository
	Hub           *realtime.Hub
	// Pusher overrides the hub as the push target, e.g. with a Redis relay
	Pusher         services.Pusher
	FirebaseAuth   handlers.IDTokenVerifier
	JWTSecret      string
	JWTTTL         time.Duration
	AllowedOrigins []string
	WSSendBuffer   int
	// ReadinessChecks are pinged by GET /ready, keyed by dependency name
	ReadinessChecks map[string]handlers.Pinger
	Log             *logrus.Logger
}

// SetupRoutes configures all application routes and injects dependencies.
// It returns the notification service so other workflows can produce notifications.
func SetupRoutes(e *echo.Echo, deps Dependencies) *services.NotificationService {
	log := deps.Log.WithField("component", "router")

	metrics.Init()
	e.Use(metrics.Middleware())

	// Health checks - always accessible
	healthHandler := handlers.NewHealthHandler(deps.ReadinessChecks, deps.Log.WithField("component", "health"))
	healthHandler.RegisterHealthRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var pusher services.Pusher = deps.Hub
	if deps.Pusher != nil {
		pusher = deps.Pusher
	}
	notificationService := services.NewNotificationService(
		deps.Notifications,
		deps.Users,
		pusher,
		deps.Log.WithField("component", "notifications"),
	)

	// --- Real-time channel ---
	wsHandler := realtime.NewWSHandler(
		deps.Hub,
		func(token string) (string, error) {
			claims, err := middleware.ParseToken(deps.JWTSecret, token)
			if err != nil {
				return "", err
			}
			return claims.UserID, nil
		},
		deps.AllowedOrigins,
		deps.WSSendBuffer,
		deps.Log.WithField("component", "realtime"),
	)
	e.GET("/ws", wsHandler.Serve)
	log.Info("WebSocket endpoint configured.")

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(deps.Users, deps.FirebaseAuth, deps.JWTSecret, deps.JWTTTL)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Info("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))

	userHandler := handlers.NewUserHandler(deps.Users)
	userHandler.RegisterProfileRoutes(api)
	log.Info("User profile routes configured.")

	notificationHandler := handlers.NewNotificationHandler(notificationService)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Info("Notification routes configured.")

	admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	moderationHandler := handlers.NewModerationHandler(notificationService)
	moderationHandler.RegisterModerationRoutes(admin)
	log.Info("Admin moderation routes configured.")

	log.Info("All routes configured.")
	return notificationService
}
