package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/manualhub/manual-api/api/swagger"
	"github.com/manualhub/manual-api/internal/handler"
	internalmiddleware "github.com/manualhub/manual-api/internal/middleware"
	"github.com/manualhub/manual-api/internal/repository"
	"github.com/manualhub/manual-api/internal/service"
	"github.com/manualhub/manual-api/pkg/cache"
	"github.com/manualhub/manual-api/pkg/config"
	"github.com/manualhub/manual-api/pkg/database"
	"github.com/manualhub/manual-api/pkg/logger"
	corsmiddleware "github.com/manualhub/manual-api/pkg/middleware/cors"
	reqidmiddleware "github.com/manualhub/manual-api/pkg/middleware/requestid"
)

// @title Manual Hub API
// @version 1.0.0
// @description Versioned manual documentation with review workflow
// @BasePath /api/v1
// @schemes http
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// previews fall back to direct reads when redis is down
		logr.Sugar().Warnw("redis unavailable, preview caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	manualRepo := repository.NewManualRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	collaboratorRepo := repository.NewCollaboratorRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	previewTTL := cfg.Preview.CacheTTL
	if !cfg.Preview.CacheEnabled {
		previewTTL = 0
	}

	tokenService := service.NewTokenService(cfg.JWT.Secret)
	metricsService := service.NewMetricsService()
	manualService := service.NewManualService(manualRepo, versionRepo, reviewRepo, auditRepo, cacheRepo, validate, logr)
	versionService := service.NewVersionService(manualRepo, versionRepo, auditRepo, cacheRepo, previewTTL, metricsService, validate, logr)
	reviewService := service.NewReviewService(reviewRepo, auditRepo, validate, logr)
	collaboratorService := service.NewCollaboratorService(collaboratorRepo, manualRepo, auditRepo, validate, logr)
	categoryService := service.NewCategoryService(categoryRepo, validate, logr)

	manualHandler := handler.NewManualHandler(manualService)
	versionHandler := handler.NewVersionHandler(versionService)
	reviewHandler := handler.NewReviewHandler(reviewService)
	collaboratorHandler := handler.NewCollaboratorHandler(collaboratorService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	auditHandler := handler.NewAuditHandler(manualService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenService))
	{
		manuals := api.Group("/manuals")
		{
			manuals.GET("", manualHandler.List)
			manuals.POST("", manualHandler.Create)
			manuals.GET("/:slug", manualHandler.Get)
			manuals.PATCH("/:slug", manualHandler.Update)
			manuals.DELETE("/:slug", manualHandler.Delete)
			manuals.POST("/:slug/submit", manualHandler.Submit)
			manuals.POST("/:slug/publish", manualHandler.Publish)
			manuals.POST("/:slug/rollback", manualHandler.Rollback)

			manuals.GET("/:slug/versions", versionHandler.List)
			manuals.POST("/:slug/versions", versionHandler.Create)
			manuals.GET("/:slug/versions/:number", versionHandler.Get)
			manuals.GET("/:slug/versions/:number/preview", versionHandler.Preview)
			manuals.GET("/:slug/versions/:number/export", versionHandler.Export)

			manuals.GET("/:slug/collaborators", collaboratorHandler.List)
			manuals.POST("/:slug/collaborators", collaboratorHandler.Add)
			manuals.DELETE("/:slug/collaborators/:userId", collaboratorHandler.Remove)

			manuals.GET("/:slug/audit", auditHandler.List)
			manuals.GET("/:slug/audit/export", auditHandler.Export)
		}

		reviews := api.Group("/reviews")
		{
			reviews.GET("", reviewHandler.List)
			reviews.GET("/:id", reviewHandler.Get)
			reviews.POST("/:id/approve", reviewHandler.Approve)
			reviews.POST("/:id/reject", reviewHandler.Reject)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", categoryHandler.ListCategories)
			categories.POST("", categoryHandler.CreateCategory)
			categories.PUT("/:id", categoryHandler.UpdateCategory)
			categories.DELETE("/:id", categoryHandler.DeleteCategory)
		}

		tags := api.Group("/tags")
		{
			tags.GET("", categoryHandler.ListTags)
			tags.POST("", categoryHandler.CreateTag)
			tags.PUT("/:id", categoryHandler.UpdateTag)
			tags.DELETE("/:id", categoryHandler.DeleteTag)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
