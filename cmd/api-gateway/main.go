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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/aidrelay/aidrelay-api/api/swagger"
	"github.com/aidrelay/aidrelay-api/internal/handler"
	"github.com/aidrelay/aidrelay-api/internal/middleware"
	"github.com/aidrelay/aidrelay-api/internal/repository"
	"github.com/aidrelay/aidrelay-api/internal/service"
	"github.com/aidrelay/aidrelay-api/pkg/cache"
	"github.com/aidrelay/aidrelay-api/pkg/config"
	"github.com/aidrelay/aidrelay-api/pkg/database"
	"github.com/aidrelay/aidrelay-api/pkg/export"
	"github.com/aidrelay/aidrelay-api/pkg/jobs"
	"github.com/aidrelay/aidrelay-api/pkg/logger"
	corsmiddleware "github.com/aidrelay/aidrelay-api/pkg/middleware/cors"
	reqidmiddleware "github.com/aidrelay/aidrelay-api/pkg/middleware/requestid"
	"github.com/aidrelay/aidrelay-api/pkg/storage"
)

// @title AidRelay API
// @version 0.1.0
// @description Anonymous encrypted broadcast relay for mutual-aid help requests
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, directory cache disabled", zap.Error(err))
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	directoryRepo := repository.NewDirectoryRepository(db)
	broadcastRepo := repository.NewBroadcastRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	tombstoneRepo := repository.NewTombstoneRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	directorySvc := service.NewDirectoryService(directoryRepo, cacheRepo, metrics, logr, service.DirectoryConfig{
		CacheTTL:   cfg.Directory.CacheTTL,
		MaxResults: cfg.Directory.MaxResults,
	})

	broadcastSvc := service.NewBroadcastService(broadcastRepo, directoryRepo, metrics, logr, service.BroadcastConfig{
		InviteTTL:       cfg.Broadcast.InviteTTL,
		MinElapsed:      cfg.Broadcast.MinElapsed,
		MaxFanout:       cfg.Broadcast.MaxFanout,
		MaxPayloadBytes: cfg.Broadcast.MaxPayloadBytes,
	})

	inviteSvc := service.NewInviteService(inviteRepo, broadcastRepo, metrics, logr, service.InviteConfig{
		RetentionWindow: cfg.Broadcast.RetentionWindow,
	})

	sweepSvc := service.NewSweepService(inviteRepo, metrics, logr, service.SweepConfig{
		Interval:        cfg.Broadcast.SweepInterval,
		BatchSize:       cfg.Broadcast.SweepBatchSize,
		RetentionWindow: cfg.Broadcast.RetentionWindow,
	})
	sweepSvc.Start(ctx)

	var auditHandler *handler.AuditHandler
	if cfg.Audit.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Audit.StorageDir)
		if err != nil {
			logr.Fatal("failed to init audit storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Audit.SignedURLSecret, cfg.Audit.SignedURLTTL)

		auditJobRepo := repository.NewAuditJobRepository(db)
		exporter := service.NewExportService(tombstoneRepo, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Audit.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewAuditWorker(auditJobRepo, exporter, cfg.Audit.WorkerRetries, logr)
		queue := jobs.NewQueue("audit-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Audit.WorkerConcurrency,
			BufferSize: 64,
			MaxRetries: cfg.Audit.WorkerRetries,
			RetryDelay: time.Minute,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		auditSvc := service.NewAuditService(tombstoneRepo, auditJobRepo, queue, exporter, logr, service.AuditServiceConfig{
			ResultTTL:       cfg.Audit.SignedURLTTL,
			CleanupInterval: cfg.Audit.CleanupInterval,
		})
		auditSvc.RecoverPendingJobs(ctx)
		go auditSvc.StartCleanup(ctx)

		auditHandler = handler.NewAuditHandler(auditSvc)
	}

	directoryHandler := handler.NewDirectoryHandler(directorySvc)
	broadcastHandler := handler.NewBroadcastHandler(broadcastSvc)
	inviteHandler := handler.NewInviteHandler(inviteSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/healthz", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.GET("/directory", directoryHandler.Lookup)
	api.DELETE("/directory/cache", middleware.JWT(authSvc), directoryHandler.InvalidateCache)
	api.POST("/broadcasts", broadcastHandler.Submit)

	invites := api.Group("/invites")
	invites.Use(middleware.JWT(authSvc))
	invites.GET("", inviteHandler.List)
	invites.GET("/:inviteId", inviteHandler.Get)
	invites.GET("/:inviteId/ciphertext", inviteHandler.GetCiphertext)
	invites.POST("/:inviteId/decrypted", inviteHandler.MarkDecrypted)
	invites.DELETE("/:inviteId", inviteHandler.Delete)

	if auditHandler != nil {
		// The download route is authorized by the signed token in the URL,
		// not by a JWT, so browsers can follow it directly.
		api.GET("/audit/downloads/:token", auditHandler.Download)

		audit := api.Group("/audit")
		audit.Use(middleware.JWT(authSvc))
		audit.GET("/tombstones", auditHandler.ListTombstones)
		audit.POST("/exports", auditHandler.CreateExport)
		audit.GET("/exports/:jobId", auditHandler.ExportStatus)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Error("server shutdown", zap.Error(err))
		}
	}()

	logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Fatal("server failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
