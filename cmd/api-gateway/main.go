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
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-achievement-api/api/swagger"
	"github.com/noah-isme/sma-achievement-api/internal/handler"
	"github.com/noah-isme/sma-achievement-api/internal/repository"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	"github.com/noah-isme/sma-achievement-api/internal/service"
	"github.com/noah-isme/sma-achievement-api/pkg/cache"
	"github.com/noah-isme/sma-achievement-api/pkg/config"
	"github.com/noah-isme/sma-achievement-api/pkg/database"
	"github.com/noah-isme/sma-achievement-api/pkg/jobs"
	"github.com/noah-isme/sma-achievement-api/pkg/logger"
	"github.com/noah-isme/sma-achievement-api/pkg/observability"
	"github.com/noah-isme/sma-achievement-api/pkg/storage"
)

// @title SMA Achievement API
// @version 1.0.0
// @description Composite score and badge tier engine
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const exportCleanupInterval = 15 * time.Minute

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

	flush, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Sentry.Release)
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.RunMigrations {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, profile cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	scoringCfg, err := scoring.NewConfig(cfg.Scoring)
	if err != nil {
		logr.Fatal("invalid scoring configuration", zap.Error(err))
	}
	registry := scoring.NewRegistry(scoringCfg)

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	academicRepo := repository.NewAcademicRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	weightRepo := repository.NewWeightRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.ProfileTTL, logr, redisClient != nil)
	tracker := service.NewProfileTracker()
	index := service.NewSubmitterIndex(submissionRepo)
	facts := service.NewFactLoader(itemRepo, submissionRepo, academicRepo, activityRepo, cfg.Database.QueryTimeout)

	scoreSvc := service.NewScoreService(service.ScoreServiceConfig{
		Profiles: profileRepo,
		Users:    userRepo,
		Facts:    facts,
		Registry: registry,
		Tracker:  tracker,
		Cache:    cacheSvc,
		Metrics:  metrics,
		Reporter: observability.SentryReporter(),
		Logger:   logr,
	})

	worker := service.NewRecomputeWorker(scoreSvc, observability.SentryReporter(), logr)
	queue := jobs.NewQueue("recompute", worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Cascade.Workers,
		BufferSize:  cfg.Cascade.BufferSize,
		MaxRetries:  cfg.Cascade.MaxRetries,
		RetryDelay:  cfg.Cascade.RetryDelay,
		Logger:      logr,
		OnExhausted: worker.Exhausted,
	})
	cascadeSvc := service.NewCascadeService(itemRepo, profileRepo, index, scoreSvc, tracker, queue, metrics, logr)
	worker.BindSweeper(cascadeSvc)
	queue.Start(ctx)

	weightSvc := service.NewWeightService(weightRepo, registry, cascadeSvc, validate, logr)
	if err := weightSvc.Load(ctx); err != nil {
		logr.Fatal("failed to load category weights", zap.Error(err))
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	submissionSvc := service.NewSubmissionService(itemRepo, submissionRepo, index, scoreSvc, cascadeSvc, metrics, validate, logr)
	itemSvc := service.NewItemService(itemRepo, index, cascadeSvc, validate, logr)
	academicSvc := service.NewAcademicService(academicRepo, registry, cascadeSvc, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, cascadeSvc, validate, logr)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	exportSvc := service.NewExportService(profileRepo, files, storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL), service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, validate, logr)
	go cleanupExports(ctx, exportSvc, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newRouter(cfg, logr, metrics, authSvc, userRepo, routeHandlers{
		auth:       handler.NewAuthHandler(authSvc),
		score:      handler.NewScoreHandler(scoreSvc, cascadeSvc),
		submission: handler.NewSubmissionHandler(submissionSvc),
		item:       handler.NewItemHandler(itemSvc),
		weight:     handler.NewWeightHandler(weightSvc),
		academic:   handler.NewAcademicHandler(academicSvc),
		activity:   handler.NewActivityHandler(activitySvc),
		export:     handler.NewExportHandler(exportSvc),
		metrics:    handler.NewMetricsHandler(metrics),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	queue.Stop()
	cascadeSvc.Wait()
}

func cleanupExports(ctx context.Context, exports *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(exportCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
