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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/pontoflow/ponto-api/api/swagger"
	"github.com/pontoflow/ponto-api/internal/handler"
	"github.com/pontoflow/ponto-api/internal/integrity"
	"github.com/pontoflow/ponto-api/internal/middleware"
	"github.com/pontoflow/ponto-api/internal/models"
	"github.com/pontoflow/ponto-api/internal/repository"
	"github.com/pontoflow/ponto-api/internal/service"
	"github.com/pontoflow/ponto-api/pkg/cache"
	"github.com/pontoflow/ponto-api/pkg/config"
	"github.com/pontoflow/ponto-api/pkg/database"
	"github.com/pontoflow/ponto-api/pkg/logger"
	corsmiddleware "github.com/pontoflow/ponto-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pontoflow/ponto-api/pkg/middleware/requestid"
)

// @title Ponto API
// @version 1.0.0
// @description Multi-tenant time clock platform with tamper-evident punch records
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	timeEvents := repository.NewTimeEventRepository(db)
	adjustments := repository.NewAdjustmentRepository(db)
	users := repository.NewUserRepository(db)
	companies := repository.NewCompanyRepository(db)
	employees := repository.NewEmployeeRepository(db)
	auditLogs := repository.NewAuditLogRepository(db)

	signer := integrity.NewCodeSigner(cfg.Verification.Secret, cfg.Verification.TTL)
	engine := integrity.NewEngine(signer)

	dispatcher := service.NewNotificationDispatcher(cfg.Notifications, nil, logr)
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcher.Start(dispatcherCtx)
	defer func() {
		stopDispatcher()
		dispatcher.Stop()
	}()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(users, companies, auditLogs, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "ponto-api",
	})
	punchSvc := service.NewPunchService(timeEvents, auditLogs, engine, dispatcher, validate, logr, cfg.Punch)
	adjustmentSvc := service.NewAdjustmentService(adjustments, timeEvents, auditLogs, dispatcher, validate, logr, cfg.Amendment)
	verificationSvc := service.NewVerificationService(timeEvents, signer, auditLogs, logr)
	employeeSvc := service.NewEmployeeService(employees, validate, logr)
	reportSvc := service.NewReportService(timeEvents, signer, logr, cfg.Reports)
	dashboardSvc := service.NewDashboardService(timeEvents, redisClient, metricsSvc, logr, cfg.Dashboard)

	authHandler := handler.NewAuthHandler(authSvc)
	punchHandler := handler.NewPunchHandler(punchSvc, metricsSvc)
	adjustmentHandler := handler.NewAdjustmentHandler(adjustmentSvc, metricsSvc)
	verificationHandler := handler.NewVerificationHandler(verificationSvc, metricsSvc)
	employeeHandler := handler.NewEmployeeHandler(employeeSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)

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

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/verify", verificationHandler.Verify)

	secured := api.Group("", middleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	punches := secured.Group("/punches")
	punches.POST("", punchHandler.Commit)
	punches.GET("", punchHandler.List)
	punches.GET("/:id", punchHandler.Get)
	punches.GET("/:id/receipt",
		middleware.Audit(auditLogs, models.AuditActionExport, "receipt"),
		reportHandler.Receipt)

	adjustmentRoutes := secured.Group("/adjustments")
	adjustmentRoutes.POST("", adjustmentHandler.Create)
	adjustmentRoutes.GET("", adjustmentHandler.List)
	adjustmentRoutes.GET("/:id", adjustmentHandler.Get)
	adjustmentRoutes.POST("/:id/resolve",
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager),
		adjustmentHandler.Resolve)

	employeeRoutes := secured.Group("/employees")
	employeeRoutes.GET("", employeeHandler.List)
	employeeRoutes.GET("/:id", employeeHandler.Get)
	employeeRoutes.POST("",
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin),
		employeeHandler.Create)
	employeeRoutes.PUT("/:id",
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin),
		employeeHandler.Update)

	secured.GET("/reports/mirror",
		middleware.Audit(auditLogs, models.AuditActionExport, "mirror"),
		reportHandler.Mirror)

	if cfg.Dashboard.Enabled {
		dashboard := secured.Group("/dashboard",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager))
		dashboard.GET("/summary", dashboardHandler.Summary)
		dashboard.GET("/metrics",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin),
			dashboardHandler.SystemMetrics)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
