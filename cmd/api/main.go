package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/transitops/feedback-api/api/swagger"
	"github.com/transitops/feedback-api/internal/handler"
	"github.com/transitops/feedback-api/internal/middleware"
	"github.com/transitops/feedback-api/internal/models"
	"github.com/transitops/feedback-api/internal/repository"
	"github.com/transitops/feedback-api/internal/service"
	"github.com/transitops/feedback-api/pkg/cache"
	"github.com/transitops/feedback-api/pkg/config"
	"github.com/transitops/feedback-api/pkg/database"
	"github.com/transitops/feedback-api/pkg/logger"
	corsmiddleware "github.com/transitops/feedback-api/pkg/middleware/cors"
	reqidmiddleware "github.com/transitops/feedback-api/pkg/middleware/requestid"
)

// @title Transit Feedback API
// @version 1.0.0
// @description Complaint and feedback management backend for transit operators
// @BasePath /api/v1
// @schemes http

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
		logr.Sugar().Fatalw("postgres init failed", "error", err)
	}
	defer db.Close()

	recordRepo := repository.NewRecordRepository(db)
	staffRepo := repository.NewStaffRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Records.ListCacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Records.ListCacheTTL, logr, true)
		}
	}

	var auditSvc *service.AuditService
	if cfg.Audit.Enabled {
		auditSvc = service.NewAuditService(staffRepo, cfg.Audit.Workers, cfg.Audit.BufferSize, logr)
		auditSvc.Start(rootCtx)
		defer auditSvc.Stop()
	}

	authSvc := service.NewAuthService(staffRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "feedback-api",
		SingleSession:      cfg.Auth.SingleSession,
	})

	recordSvc := service.NewRecordService(recordRepo, cacheSvc, auditSvc, metricsSvc, logr, cfg.Records.MaxPageSize)

	authHandler := handler.NewAuthHandler(authSvc)
	recordHandler := handler.NewRecordHandler(recordSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		}

		records := api.Group("/records", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleAgent))
		{
			records.GET("", recordHandler.List)
			records.GET("/:id", recordHandler.Get)
			records.PATCH("/:id", recordHandler.Update)
		}
	}

	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := scheduler.AddFunc(cfg.Auth.TokenSweepSchedule, func() {
		if _, err := authSvc.SweepExpiredTokens(rootCtx); err != nil {
			logr.Sugar().Warnw("refresh token sweep failed", "error", err)
		}
	}); err != nil {
		logr.Sugar().Fatalw("invalid token sweep schedule", "schedule", cfg.Auth.TokenSweepSchedule, "error", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("http shutdown failed", "error", err)
	}
}
