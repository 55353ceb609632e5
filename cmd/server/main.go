package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/plannery/plannery-backend/config"
	"github.com/plannery/plannery-backend/internal/app/controller"
	"github.com/plannery/plannery-backend/internal/app/repository"
	"github.com/plannery/plannery-backend/internal/app/service"
	"github.com/plannery/plannery-backend/internal/db"
	"github.com/plannery/plannery-backend/internal/middleware"
	"github.com/plannery/plannery-backend/internal/router"
	"github.com/plannery/plannery-backend/internal/scan"
	"github.com/plannery/plannery-backend/internal/scheduler"
	"github.com/plannery/plannery-backend/internal/storage"
	"github.com/plannery/plannery-backend/pkg/cache"
	"github.com/plannery/plannery-backend/pkg/logger"
	"github.com/plannery/plannery-backend/pkg/places"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Plannery Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Initialize Redis
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}
	defer redisCache.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	venueRepo := repository.NewVenueRepository(db.GetDB())
	followRepo := repository.NewFollowRepository(db.GetDB())
	photoRepo := repository.NewPhotoRepository(db.GetDB())
	scannedAreaRepo := repository.NewScannedAreaRepository(db.GetDB())

	// Initialize scan pipeline
	codec := scan.NewCodec(cfg.Scan.GeohashPrecision)
	scanQueue := scan.NewQueue(redisCache.Client(), cfg.Scan.MaxAttempts)
	evaluator := scan.NewEvaluator(codec, scannedAreaRepo, scanQueue, cfg.Scan.StalenessThreshold)
	placesClient := places.NewClient(&cfg.Places, redisCache)
	scanWorker := scan.NewWorker(scanQueue, codec, placesClient, venueRepo, photoRepo, scannedAreaRepo, &cfg.Scan)
	scanWorker.Start()
	defer scanWorker.Stop()

	// Initialize storage
	photoStorage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	venueService := service.NewVenueService(venueRepo, followRepo, evaluator, redisCache)
	photoService := service.NewPhotoService(photoRepo, venueRepo, photoStorage)
	trendingService := service.NewTrendingService(
		venueRepo,
		redisCache,
		cfg.Trending.BatchSize,
		cfg.Trending.ScoreCacheTTL,
	)

	// Start trending refresh scheduler
	trendingScheduler := scheduler.NewTrendingScheduler(trendingService, cfg.Trending.CronSchedule)
	if err := trendingScheduler.Start(); err != nil {
		logger.Fatal("Failed to start trending scheduler", err)
	}
	defer trendingScheduler.Stop()

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	venueController := controller.NewVenueController(venueService, trendingService)
	photoController := controller.NewPhotoController(photoService)
	adminController := controller.NewAdminController(photoService, venueService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		authController,
		venueController,
		photoController,
		adminController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
