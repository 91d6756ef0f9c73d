package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devvault/backend/internal/handlers"
	"github.com/devvault/backend/internal/models"
	"github.com/devvault/backend/internal/realtime"
	"github.com/devvault/backend/internal/repositories"
	"github.com/devvault/backend/internal/router"
	"github.com/devvault/backend/pkg/config"
	"github.com/devvault/backend/pkg/firebase"
	"github.com/devvault/backend/pkg/logger"
	"github.com/devvault/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	startup := logger.WithComponent(log, "startup")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg, logger.WithComponent(log, "database"))
	if err != nil {
		startup.WithError(err).Fatal("Failed to initialize databases")
	}
	defer db.CloseDB()

	if err := db.Postgres.AutoMigrate(&models.User{}); err != nil {
		startup.WithError(err).Fatal("Failed to auto migrate models")
	}

	notificationRepo := repositories.NewMongoNotificationRepository(db.Mongo.Database(cfg.MongoDatabase))
	if err := notificationRepo.EnsureIndexes(ctx); err != nil {
		startup.WithError(err).Warn("Failed to create notification indexes")
	}

	readiness := map[string]handlers.Pinger{
		"mongodb":    db.PingMongo,
		"postgresql": db.PingPostgres,
	}
	deps := router.Dependencies{
		Users:           repositories.NewPostgresUserRepository(db.Postgres),
		Notifications:   notificationRepo,
		Hub:             realtime.NewHub(logger.WithComponent(log, "hub")),
		JWTSecret:       cfg.JWTSecret,
		JWTTTL:          cfg.JWTTTL,
		AllowedOrigins:  cfg.AllowedOrigins,
		WSSendBuffer:    cfg.WSSendBuffer,
		ReadinessChecks: readiness,
		Log:             log,
	}

	firebaseAuth, err := firebase.NewAuthClient(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		startup.WithError(err).Fatal("Failed to initialize Firebase")
	}
	if firebaseAuth != nil {
		deps.FirebaseAuth = handlers.IDTokenVerifier(firebaseAuth)
		startup.Info("Firebase login enabled")
	}

	redisClient, err := config.ConnectRedis(cfg)
	if err != nil {
		startup.WithError(err).Fatal("Failed to connect to Redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		relay := realtime.NewRedisRelay(redisClient, cfg.RedisChannel, deps.Hub, logger.WithComponent(log, "relay"))
		deps.Pusher = relay
		deps.ReadinessChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				startup.WithError(err).Error("Redis relay stopped")
			}
		}()
		startup.Info("Redis relay enabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, cfg, logger.WithComponent(log, "http"))
	router.SetupRoutes(e, deps)

	go func() {
		startup.WithField("port", cfg.Port).Info("DevVault API started")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startup.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	startup.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		startup.WithError(err).Error("Server forced to shutdown")
	} else {
		startup.Info("Server shutdown complete")
	}
}
