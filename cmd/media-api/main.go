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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/homereel/media-library/api/swagger"
	"github.com/homereel/media-library/internal/handler"
	"github.com/homereel/media-library/internal/middleware"
	"github.com/homereel/media-library/internal/repository"
	"github.com/homereel/media-library/internal/service"
	"github.com/homereel/media-library/pkg/cache"
	"github.com/homereel/media-library/pkg/config"
	"github.com/homereel/media-library/pkg/database"
	"github.com/homereel/media-library/pkg/export"
	"github.com/homereel/media-library/pkg/jobs"
	"github.com/homereel/media-library/pkg/logger"
	corsmiddleware "github.com/homereel/media-library/pkg/middleware/cors"
	reqidmiddleware "github.com/homereel/media-library/pkg/middleware/requestid"
	"github.com/homereel/media-library/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

// @title Media Library API
// @version 1.0.0
// @description Family photo and video library: ingestion, streaming, tags, comments and catalog export.
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database, logr, database.MigrateUp); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		if redisClient, err = cache.NewRedis(cfg.Redis); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close() //nolint:errcheck
	}

	blobs, err := openStorage(ctx, cfg, logr)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	mediaRepo := repository.NewMediaRepository(db)
	tagRepo := repository.NewTagRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	sourceRepo := repository.NewSourceRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	sources := service.NewSourceCatalog(sourceRepo, service.SourceCatalogConfig{
		Size: cfg.SourceCatalog.Size,
		TTL:  cfg.SourceCatalog.TTL,
	}, logr)
	if _, err := sources.Seed(ctx); err != nil {
		return fmt.Errorf("seed media sources: %w", err)
	}

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	signer := storage.NewLinkSigner(cfg.Links.Secret, cfg.Links.TTL)

	var probeQueue *jobs.Queue
	var scheduler interface{ Schedule(string) error }
	if cfg.Probe.Enabled {
		probe := service.NewProbeService(mediaRepo, blobs, cacheSvc, metricsSvc, logr)
		probeQueue = jobs.NewQueue("media-probe", probe.Handle, jobs.QueueConfig{
			Workers:     cfg.Probe.Workers,
			MaxRetries:  cfg.Probe.Retries,
			RetryDelay:  cfg.Probe.RetryDelay,
			JobTimeout:  cfg.Probe.Timeout,
			Logger:      logr,
			OnExhausted: probe.Exhausted,
		})
		probe.UseQueue(probeQueue)
		probeQueue.Start(ctx)
		defer probeQueue.Stop()
		scheduler = probe
	}

	ingestSvc := service.NewIngestionService(mediaRepo, tagRepo, sources, blobs, db, scheduler, metricsSvc, validate, logr,
		service.IngestionConfig{Media: cfg.Media})
	mediaSvc := service.NewMediaService(mediaRepo, tagRepo, commentRepo, signer, cacheSvc, logr, service.MediaServiceConfig{
		GuestView:     cfg.Media.EnableGuestView,
		PublicBaseURL: cfg.Links.BaseURL,
		APIPrefix:     cfg.APIPrefix,
		CacheTTL:      cfg.Cache.TTL,
	})
	streamSvc := service.NewStreamService(mediaRepo, blobs, signer, metricsSvc, logr, service.StreamServiceConfig{
		ChunkSize: cfg.Media.StreamChunkSize,
		GuestView: cfg.Media.EnableGuestView,
	})
	tagSvc := service.NewTagService(mediaRepo, tagRepo, cacheSvc, cfg.Media.EnableGuestView, logr)
	commentSvc := service.NewCommentService(mediaRepo, commentRepo, cacheSvc, cfg.Media.EnableGuestView, validate, logr)
	exportSvc := service.NewExportService(mediaRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:     handler.NewAuthHandler(),
		Media:    handler.NewMediaHandler(mediaSvc, ingestSvc, exportSvc, sources, cfg.Media.MaxUploadBytes),
		Streams:  handler.NewStreamHandler(streamSvc, logr),
		Tags:     handler.NewTagHandler(tagSvc),
		Comments: handler.NewCommentHandler(commentSvc),
		Metrics:  handler.NewMetricsHandler(metricsSvc, readinessChecks(db, redisClient, blobs)),
	}, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Media.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logr *zap.Logger) (storage.BlobStore, error) {
	switch cfg.Media.StorageDriver {
	case config.StorageDriverMinIO:
		return storage.NewMinIOStorage(ctx, cfg.MinIO)
	default:
		local, err := storage.NewLocalStorage(cfg.Media.StorageDir)
		if err != nil {
			return nil, err
		}
		removed, err := local.SweepTemp(cfg.Media.TempMaxAge)
		if err != nil {
			logr.Warn("temp sweep failed", zap.Error(err))
		} else if len(removed) > 0 {
			logr.Info("removed stale upload temp files", zap.Int("count", len(removed)))
		}
		return local, nil
	}
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client, blobs storage.BlobStore) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{
		"postgres": db,
		"storage": handler.PingFunc(func(ctx context.Context) error {
			_, err := blobs.Exists(ctx, ".probe")
			return err
		}),
	}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return cache.Ping(ctx, redisClient)
		})
	}
	return checks
}
