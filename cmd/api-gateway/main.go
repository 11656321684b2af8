package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gymslot-api/api/swagger"
	"github.com/noah-isme/gymslot-api/internal/handler"
	internalmiddleware "github.com/noah-isme/gymslot-api/internal/middleware"
	"github.com/noah-isme/gymslot-api/internal/repository"
	"github.com/noah-isme/gymslot-api/internal/router"
	"github.com/noah-isme/gymslot-api/internal/service"
	"github.com/noah-isme/gymslot-api/pkg/cache"
	"github.com/noah-isme/gymslot-api/pkg/config"
	"github.com/noah-isme/gymslot-api/pkg/database"
	"github.com/noah-isme/gymslot-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gymslot-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gymslot-api/pkg/middleware/requestid"
)

// @title Gym Slot Booking API
// @version 1.0.0
// @description Weekly gym slot calendar with capacity-controlled bookings.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Calendar.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, calendar cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()
	location := cfg.Location()

	userRepo := repository.NewUserRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db, logr)
	feedbackRepo := repository.NewFeedbackRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "gymslot", logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Calendar.CacheTTL, logr, cacheRepo.Enabled())
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	slotSvc := service.NewSlotService(slotRepo, cacheSvc, userRepo, metricsSvc, validate, logr, service.SlotServiceConfig{
		DefaultCapacity:     cfg.Slots.DefaultCapacity,
		MaxMaterializeDays:  cfg.Slots.MaxMaterializeDays,
		AutoMaterialize:     cfg.Slots.AutoMaterialize,
		AutoMaterializeDays: cfg.Slots.HorizonDays,
		CalendarTTL:         cfg.Calendar.CacheTTL,
		Location:            location,
	})
	bookingSvc := service.NewBookingService(bookingRepo, slotRepo, slotSvc, metricsSvc, validate, logr)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, userRepo, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, userRepo, validate, logr)
	exportSvc := service.NewExportService(bookingSvc, location, logr)

	if cfg.Slots.HorizonDays > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := slotSvc.MaterializeHorizon(ctx, cfg.Slots.HorizonDays); err != nil {
			logr.Warn("startup slot materialization failed", zap.Error(err))
		}
		cancel()
	}

	var metricsHandler http.Handler
	if metricsSvc != nil {
		metricsHandler = metricsSvc.Handler()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	router.Register(r, router.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Slots:        handler.NewSlotHandler(slotSvc),
		Bookings:     handler.NewBookingHandler(bookingSvc, exportSvc),
		Feedback:     handler.NewFeedbackHandler(feedbackSvc),
		Announcement: handler.NewAnnouncementHandler(announcementSvc),
		Metrics:      handler.NewMetricsHandler(metricsHandler, db),
	}, router.Options{
		Prefix:        cfg.APIPrefix,
		Tokens:        authSvc,
		Audit:         userRepo,
		EnableMetrics: metricsSvc != nil,
	})

	if cfg.Env != config.EnvProduction || cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
