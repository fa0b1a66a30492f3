package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edusafe-mx/plantel-api/api/swagger"
	"github.com/edusafe-mx/plantel-api/internal/classifier"
	"github.com/edusafe-mx/plantel-api/internal/handler"
	"github.com/edusafe-mx/plantel-api/internal/middleware"
	"github.com/edusafe-mx/plantel-api/internal/models"
	"github.com/edusafe-mx/plantel-api/internal/repository"
	"github.com/edusafe-mx/plantel-api/internal/service"
	"github.com/edusafe-mx/plantel-api/pkg/cache"
	"github.com/edusafe-mx/plantel-api/pkg/config"
	"github.com/edusafe-mx/plantel-api/pkg/database"
	"github.com/edusafe-mx/plantel-api/pkg/export"
	"github.com/edusafe-mx/plantel-api/pkg/logger"
	corsmiddleware "github.com/edusafe-mx/plantel-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edusafe-mx/plantel-api/pkg/middleware/requestid"
	"github.com/edusafe-mx/plantel-api/pkg/storage"
)

// @title Plantel Incidents API
// @version 1.0.0
// @description Incident lifecycle and planning review service for school campuses
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
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list caching disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	actaStorage, err := storage.NewLocalStorage(cfg.Incidents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare acta storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Incidents.SignedURLSecret, cfg.Incidents.SignedURLTTL)
	renderer := export.NewActaPDFExporter()
	classifierClient := classifier.NewClient(cfg.Classifier.BaseURL, cfg.Classifier.Timeout)

	notifier := service.NewNotificationService(service.NewLogSender(logr), logr, cfg.Notifications.Workers, cfg.Notifications.BufferSize)
	notifier.Start(context.Background())
	defer notifier.Stop()

	incidentRepo := repository.NewIncidentRepository(db)
	planningRepo := repository.NewPlanningRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	incidentSvc := service.NewIncidentService(incidentRepo, auditRepo, actaStorage, signer, renderer, notifier, cacheSvc, metricsSvc, logr, service.IncidentServiceConfig{
		MaxFileSize: cfg.Incidents.MaxFileSizeBytes,
		APIPrefix:   cfg.APIPrefix,
	})
	wizardSvc := service.NewWizardService(classifierClient, incidentSvc, logr)
	planningSvc := service.NewPlanningService(planningRepo, auditRepo, notifier, metricsSvc, logr)

	incidentHandler := handler.NewIncidentHandler(wizardSvc, incidentSvc)
	planningHandler := handler.NewPlanningHandler(planningSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		payload := gin.H{"status": "ready"}
		if err := classifierClient.Health(ctx); err != nil {
			payload["classifier"] = "unreachable"
		}
		c.JSON(http.StatusOK, payload)
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleDirector, models.RoleTeacher)
	directors := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleDirector)

	incidents := api.Group("/incidents")
	{
		incidents.POST("/analyze", staff, incidentHandler.Analyze)
		incidents.POST("", staff, incidentHandler.Create)
		incidents.GET("", staff, incidentHandler.List)
		incidents.GET("/:id", staff, incidentHandler.Get)
		incidents.PUT("/:id/acta", staff, incidentHandler.UpdateActa)
		incidents.PUT("/:id/protocol/:actionId", staff, incidentHandler.ToggleAction)
		incidents.POST("/:id/print", staff, incidentHandler.Print)
		incidents.POST("/:id/signed-acta", staff, incidentHandler.UploadSigned)
		incidents.GET("/:id/signed-acta/url", staff, incidentHandler.SignedDownloadURL)
		incidents.POST("/:id/close", directors, incidentHandler.Close)
	}

	// Token-bearing downloads must work without an Authorization header.
	r.GET(cfg.APIPrefix+"/incidents/:id/signed-acta", middleware.OptionalJWT(cfg.JWT.Secret), incidentHandler.Download)

	if cfg.Planning.Enabled {
		teachers := middleware.RequireRoles(models.RoleTeacher)
		api.POST("/plans/:planId/submissions", teachers, planningHandler.Submit)
		api.POST("/plans/:planId/resubmit", teachers, planningHandler.Resubmit)
		api.GET("/submissions", staff, planningHandler.List)
		api.GET("/submissions/:id", staff, planningHandler.Get)
		api.POST("/submissions/:id/review", directors, planningHandler.Review)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
