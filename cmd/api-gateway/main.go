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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/fitness-admin-api/api/swagger"
	"github.com/noah-isme/fitness-admin-api/internal/handler"
	"github.com/noah-isme/fitness-admin-api/internal/middleware"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/internal/repository"
	"github.com/noah-isme/fitness-admin-api/internal/service"
	"github.com/noah-isme/fitness-admin-api/pkg/cache"
	"github.com/noah-isme/fitness-admin-api/pkg/config"
	"github.com/noah-isme/fitness-admin-api/pkg/database"
	"github.com/noah-isme/fitness-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/fitness-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/fitness-admin-api/pkg/middleware/requestid"
)

// @title Fitness Admin API
// @version 1.0.0
// @description Admin console for the company fitness challenge
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	userRepo := repository.NewUserRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)
	kpiRepo := repository.NewKPIRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT)
	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, cfg.Notifications, logr)

	exceptionOpts := []service.ExceptionServiceOption{}
	if cfg.Notifications.NotifyOnDecision {
		exceptionOpts = append(exceptionOpts, service.WithDecisionNotifier(notificationSvc))
	}
	exceptionSvc := service.NewExceptionService(exceptionRepo, userRepo, userRepo, logr, exceptionOpts...)
	penaltySvc := service.NewPenaltyService(kpiRepo, userRepo, exceptionRepo, userRepo, cfg.Penalty, logr)
	registrationSvc := service.NewRegistrationService(userRepo, userRepo, notificationSvc, cfg.KPI, logr)
	dashboardSvc := service.NewDashboardService(exceptionSvc, userRepo, penaltySvc, cacheRepo, metricsSvc, cfg.Dashboard, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(rootCtx)
	defer notificationSvc.Stop()

	exceptionHandler := handler.NewExceptionHandler(exceptionSvc, dashboardSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, dashboardSvc)
	penaltyHandler := handler.NewPenaltyHandler(penaltySvc, dashboardSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/register", registrationHandler.Register)

	authed := api.Group("/", middleware.JWT(tokenSvc))

	adminOnly := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	selfOrAdmin := middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), "SELF")

	exceptions := authed.Group("/exceptions")
	{
		exceptions.POST("", exceptionHandler.Create)
		exceptions.GET("", exceptionHandler.List)
		exceptions.GET("/stats", adminOnly, exceptionHandler.Stats)
		exceptions.POST("/preview", exceptionHandler.Preview)
		exceptions.GET("/:id", exceptionHandler.Get)
		exceptions.POST("/:id/approve", adminOnly, exceptionHandler.Approve)
		exceptions.POST("/:id/reject", adminOnly, exceptionHandler.Reject)
	}

	authed.GET("/users/:id/active-exception", selfOrAdmin, exceptionHandler.Active)

	registrations := authed.Group("/registrations", adminOnly)
	{
		registrations.GET("/pending", registrationHandler.ListPending)
		registrations.POST("/:id/approve", registrationHandler.Approve)
		registrations.POST("/:id/reject", registrationHandler.Reject)
	}

	authed.PUT("/kpi/actuals", adminOnly, penaltyHandler.RecordActuals)

	penalties := authed.Group("/penalties")
	{
		penalties.GET("/users/:id", selfOrAdmin, penaltyHandler.MemberPenalty)
		penalties.GET("/report", adminOnly, penaltyHandler.Report)
		penalties.GET("/report/export", adminOnly, middleware.Audit(userRepo, "REPORT_EXPORT", "penalty_report"), penaltyHandler.Export)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
	}

	authed.GET("/dashboard", adminOnly, dashboardHandler.Summary)
	authed.GET("/metrics/snapshot", adminOnly, metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
