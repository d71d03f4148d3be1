package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"rewards_backend/internal/api"
	"rewards_backend/internal/imagestore"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service"
	"rewards_backend/pkg/auth"
	"rewards_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	if cfg.MigrationsDir != "" {
		if err := repo.ApplyMigrations(context.Background(), cfg.MigrationsDir); err != nil {
			zapLogger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	images, err := imagestore.New(context.Background(), cfg.Storage)
	if err != nil {
		zapLogger.Fatal("Failed to initialize image store", zap.Error(err))
	}

	hub := api.NewHub()

	svc := service.NewService(
		service.NewUserService(repo, images, hub),
		service.NewOfferService(repo, images, hub),
		service.NewClickService(repo, hub),
		service.NewWithdrawalService(repo, hub, cfg.Rewards.ExchangeRate),
	)

	identityAuth := auth.NewIdentityAuth(cfg.Auth.DebugMode)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		zapLogger.Fatal("Failed to create scheduler", zap.Error(err))
	}
	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			count, err := svc.ResetCheckIns(ctx)
			if err != nil {
				zapLogger.Error("Failed to reset check-ins", zap.Error(err))
				return
			}
			zapLogger.Info("Reset daily check-ins", zap.Int64("users", count))
		}),
	)
	if err != nil {
		zapLogger.Fatal("Failed to schedule check-in reset", zap.Error(err))
	}
	scheduler.Start()
	defer func() { _ = scheduler.Shutdown() }()

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, svc.UserService, svc.WithdrawalService, identityAuth)
	api.NewOfferRoutes(a, svc.OfferService, identityAuth)
	api.NewClickRoutes(a, svc.ClickService, identityAuth)

	a.GET("/ws/:uid", hub.HandleConnection)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
