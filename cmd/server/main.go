package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edforge/test-session-service/internal/cache"
	"github.com/edforge/test-session-service/internal/config"
	"github.com/edforge/test-session-service/internal/events"
	"github.com/edforge/test-session-service/internal/grading"
	"github.com/edforge/test-session-service/internal/handlers"
	"github.com/edforge/test-session-service/internal/models"
	"github.com/edforge/test-session-service/internal/monitor"
	"github.com/edforge/test-session-service/internal/repositories"
	"github.com/edforge/test-session-service/internal/services"
	"github.com/edforge/test-session-service/internal/utils"
	"github.com/edforge/test-session-service/pkg"
)

const sweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogLogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(
		&models.Test{},
		&models.TestQuestion{},
		&models.QuestionOption{},
		&models.TestSession{},
		&models.Submission{},
	); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	repo := repositories.NewRepository(db)
	cacheService := cache.NewRedisCache(redisClient, slogLogger)

	var publisher events.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: cfg.KafkaBrokers,
			TopicName:    cfg.SessionEventsTopic,
			Logger:       slogLogger,
		})
		if err != nil {
			logger.Error("Failed to create Kafka publisher, falling back to mock", "error", err)
			publisher = events.NewMockEventPublisher(slogLogger)
		}
	} else {
		logger.Warn("No Kafka brokers configured, events will not leave the process")
		publisher = events.NewMockEventPublisher(slogLogger)
	}
	defer publisher.Close()

	gradingClient := grading.NewHTTPClient(cfg.GradingAPIURL, cfg.GradingAPIKey, slogLogger)
	validator := utils.NewValidator()

	serviceManager := services.NewServiceManager(
		repo,
		gradingClient,
		publisher,
		cacheService,
		slogLogger,
		validator,
		cfg.SessionIdleTimeout,
	)

	statusMonitor := monitor.NewMonitor(redisClient, publisher, slogLogger, cfg.HeartbeatTTL, cfg.ReconnectInterval)
	defer statusMonitor.Close()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go statusMonitor.Run(rootCtx)
	go runSweeper(rootCtx, serviceManager.Session(), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	verifier := handlers.NewCasdoorVerifier(cfg)
	auth := handlers.AuthMiddleware(verifier, cfg.LoginURL, logger)

	handlerManager := handlers.NewHandlerManager(serviceManager, statusMonitor, validator, logger, handlers.RedirectTargets{
		LoginURL:       cfg.LoginURL,
		TestListingURL: cfg.TestListingURL,
		ErrorPageURL:   cfg.ErrorPageURL,
	})
	handlerManager.SetupRoutes(router, auth)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}

// runSweeper periodically marks idle sessions abandoned.
func runSweeper(ctx context.Context, sessionService services.SessionService, logger utils.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessionService.SweepAbandoned(ctx); err != nil {
				logger.Error("Abandoned session sweep failed", "error", err)
			}
		}
	}
}
