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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/folio-api/api/swagger"
	"github.com/noah-isme/folio-api/internal/handler"
	internalmiddleware "github.com/noah-isme/folio-api/internal/middleware"
	"github.com/noah-isme/folio-api/internal/repository"
	"github.com/noah-isme/folio-api/internal/service"
	"github.com/noah-isme/folio-api/pkg/cache"
	"github.com/noah-isme/folio-api/pkg/config"
	"github.com/noah-isme/folio-api/pkg/database"
	"github.com/noah-isme/folio-api/pkg/jobs"
	"github.com/noah-isme/folio-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/folio-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/folio-api/pkg/middleware/requestid"
	"github.com/noah-isme/folio-api/pkg/storage"
)

// @title Folio API
// @version 1.0.0
// @description Records management: documents, retention schedules and custody transfers.
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

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	checks := map[string]handler.Pinger{"postgres": db}
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			checks["redis"] = cache.Pinger{Client: redisClient}
		}
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage.Dir)
	if err != nil {
		logr.Fatal("failed to open object store", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	tagRepo := repository.NewTagRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	documentTypeRepo := repository.NewDocumentTypeRepository(db)
	remarkRepo := repository.NewRemarkRepository(db)
	logRepo := repository.NewLogRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)
	auditSvc := service.NewAuditService(logRepo, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Repo:   dashboardRepo,
		Cache:  cacheSvc,
		Logger: logr,
		Config: service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	storageSvc := service.NewStorageService(objectStore, signer, metricsSvc, logr, service.StorageServiceConfig{
		Bucket:          cfg.Storage.Bucket,
		MaxFileSize:     cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs:    cfg.Storage.AllowedMIMEs,
		DownloadBaseURL: cfg.APIPrefix + "/storage/objects/",
	})
	cleanupQueue := jobs.NewQueue("storage-cleanup", storageSvc.HandleCleanupJob, jobs.QueueConfig{
		Workers:    cfg.Storage.CleanupWorkers,
		MaxRetries: cfg.Storage.CleanupRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	storageSvc.SetCleanupQueue(cleanupQueue)

	authSvc := service.NewAuthService(userRepo, roleRepo, logr, service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	userSvc := service.NewUserService(userRepo, roleRepo, auditSvc, logr)
	orgSvc := service.NewOrganizationService(orgRepo, auditSvc, validate, logr)
	roleSvc := service.NewRoleService(roleRepo, orgRepo, userRepo, auditSvc, validate, logr)
	tagSvc := service.NewTagService(tagRepo, userRepo, roleRepo, auditSvc, dashboardSvc, validate, logr)
	documentTypeSvc := service.NewDocumentTypeService(documentTypeRepo, auditSvc, validate, logr)
	documentSvc := service.NewDocumentService(service.DocumentServiceParams{
		Documents: documentRepo,
		Types:     documentTypeRepo,
		Storage:   storageSvc,
		Audit:     auditSvc,
		Dashboard: dashboardSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	})
	transferSvc := service.NewTransferService(service.TransferServiceParams{
		Documents: documentRepo,
		Remarks:   remarkRepo,
		Users:     userRepo,
		Roles:     roleRepo,
		Tags:      tagSvc,
		Audit:     auditSvc,
		Dashboard: dashboardSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())
	r.MaxMultipartMemory = 8 << 20

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), internalmiddleware.JWT(authSvc), handler.Handlers{
		Users:         handler.NewUserHandler(userSvc),
		Organizations: handler.NewOrganizationHandler(orgSvc),
		Roles:         handler.NewRoleHandler(roleSvc),
		DocumentTypes: handler.NewDocumentTypeHandler(documentTypeSvc),
		Documents:     handler.NewDocumentHandler(documentSvc),
		Transfers:     handler.NewTransferHandler(transferSvc),
		Tags:          handler.NewTagHandler(tagSvc),
		Logs:          handler.NewLogHandler(auditSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Storage:       handler.NewStorageHandler(storageSvc),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleanupQueue.Start(ctx)
	defer cleanupQueue.Stop()

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

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
