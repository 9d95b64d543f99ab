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
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	_ "github.com/noah-isme/roadside-assist-api/api/swagger"
	"github.com/noah-isme/roadside-assist-api/internal/handler"
	"github.com/noah-isme/roadside-assist-api/internal/middleware"
	"github.com/noah-isme/roadside-assist-api/internal/repository"
	"github.com/noah-isme/roadside-assist-api/internal/router"
	"github.com/noah-isme/roadside-assist-api/internal/service"
	"github.com/noah-isme/roadside-assist-api/pkg/cache"
	"github.com/noah-isme/roadside-assist-api/pkg/config"
	"github.com/noah-isme/roadside-assist-api/pkg/database"
	"github.com/noah-isme/roadside-assist-api/pkg/events"
	"github.com/noah-isme/roadside-assist-api/pkg/jobs"
	"github.com/noah-isme/roadside-assist-api/pkg/logger"
	"github.com/noah-isme/roadside-assist-api/pkg/response"
	"github.com/noah-isme/roadside-assist-api/pkg/storage"
)

// @title Roadside Assist API
// @version 1.0.0
// @description Emergency dispatch, engine sound diagnosis and platform analytics.
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
	response.SetExposeInternal(cfg.Env != config.EnvProduction)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB, cfg.Database.MigrationsDir); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	metricsSvc := service.NewMetricsService()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		if cfg.Jobs.Driver == config.JobsDriverAsynq {
			return fmt.Errorf("connect redis: %w", err)
		}
		logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled && redisClient != nil)

	var publisher events.Publisher = events.Noop{}
	if cfg.Events.NATSURL != "" {
		natsPublisher, conn, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logr)
		if err != nil {
			logr.Warn("nats unavailable, domain events disabled", zap.Error(err))
		} else {
			publisher = natsPublisher
			defer conn.Drain() //nolint:errcheck
		}
	}

	validate := validator.New()
	emergencyRepo := repository.NewEmergencyRepository(db)
	diagnosisRepo := repository.NewDiagnosisRepository(db)
	garageRepo := repository.NewGarageRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	userRepo := repository.NewUserRepository(db)

	audioStore, err := storage.NewLocalStorage(cfg.Diagnosis.StorageDir)
	if err != nil {
		return err
	}
	signer := storage.NewSignedURLSigner(cfg.Diagnosis.SignedURLSecret, cfg.Diagnosis.SignedURLTTL)

	analyzer := service.NewSimulatedAnalyzer(cfg.Diagnosis.AnalysisDelay, cfg.Diagnosis.FailureRate, nil)
	worker := service.NewDiagnosisWorker(diagnosisRepo, analyzer, publisher, metricsSvc, logr)

	queue, shutdownJobs, err := startJobs(cfg, worker, logr)
	if err != nil {
		return err
	}
	jobsStopped := false
	defer func() {
		if !jobsStopped {
			shutdownJobs()
		}
	}()

	authSvc := service.NewAuthService(userRepo, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})
	emergencySvc := service.NewEmergencyService(emergencyRepo, publisher, metricsSvc, validate, logr)
	dispatchSvc := service.NewDispatchService(emergencyRepo, garageRepo, service.DispatchConfig{
		DefaultRadiusKm: cfg.Dispatch.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Dispatch.MaxRadiusKm,
		GarageRadiusKm:  cfg.Dispatch.GarageRadiusKm,
	}, logr)
	diagnosisSvc := service.NewDiagnosisService(diagnosisRepo, audioStore, queue, signer, service.DiagnosisConfig{
		MaxFileSizeBytes: cfg.Diagnosis.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Diagnosis.AllowedMIMEs,
		AudioURLPrefix:   cfg.APIPrefix + "/diagnoses/audio/",
	}, validate, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, diagnosisRepo, garageRepo, cacheSvc, metricsSvc, service.AnalyticsConfig{
		TopNDefault: cfg.Analytics.TopNDefault,
		CacheTTL:    cfg.Analytics.CacheTTL,
	}, logr)
	exportSvc := service.NewExportService(analyticsSvc, nil, nil, logr)
	userSvc := service.NewUserService(userRepo, logr)

	if cfg.Diagnosis.RecoverOnStart {
		recovered, err := diagnosisSvc.RecoverPending(ctx)
		if err != nil {
			logr.Error("failed to recover pending diagnoses", zap.Error(err))
		} else if recovered > 0 {
			logr.Info("re-enqueued unfinished diagnoses", zap.Int("count", recovered))
		}
	}

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMin: cfg.RateLimit.RequestsPerMin,
			Burst:          cfg.RateLimit.Burst,
			MaxTrackedKeys: cfg.RateLimit.MaxTrackedKeys,
		}, metricsSvc)
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		EnableDocs:     cfg.Env != config.EnvProduction,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Auth:           authSvc,
		Observer:       metricsSvc,
		RateLimiter:    limiter,
	}, router.Handlers{
		Emergency: handler.NewEmergencyHandler(emergencySvc),
		Dispatch:  handler.NewDispatchHandler(dispatchSvc),
		Diagnosis: handler.NewDiagnosisHandler(diagnosisSvc),
		Analytics: handler.NewAnalyticsHandler(analyticsSvc, exportSvc),
		User:      handler.NewUserHandler(userSvc),
		Metrics:   handler.NewMetricsHandler(metricsSvc.Handler(), checks, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(engine, "roadside-assist-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	jobsStopped = true
	return drain(shutdownCtx, srv, shutdownJobs)
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// drain stops accepting requests, waits for in-flight ones and only then stops the job workers, so
// uploads finishing during the drain can still enqueue their analysis.
func drain(ctx context.Context, srv shutdowner, stopJobs func()) error {
	err := srv.Shutdown(ctx)
	stopJobs()
	return err
}

// startJobs wires the diagnosis worker to the configured driver and returns the dispatcher used to
// schedule analyses plus a shutdown hook. Workers outlive the signal context; the hook stops them.
func startJobs(cfg *config.Config, worker *service.DiagnosisWorker, logr *zap.Logger) (jobs.Dispatcher, func(), error) {
	switch cfg.Jobs.Driver {
	case config.JobsDriverAsynq:
		asynqCfg := jobs.AsynqConfig{
			RedisAddr:     cache.Addr(cfg.Redis),
			RedisPassword: cfg.Redis.Password,
			RedisDB:       cfg.Redis.DB,
			Concurrency:   cfg.Jobs.Workers,
			MaxRetries:    cfg.Jobs.MaxRetries,
			Logger:        logr,
		}
		dispatcher := jobs.NewAsynqDispatcher(asynqCfg)
		consumer := jobs.NewAsynqWorker(asynqCfg, worker.GiveUp)
		consumer.Handle(service.JobTypeDiagnosisAnalyze, worker.Handle)
		if err := consumer.Start(); err != nil {
			_ = dispatcher.Close()
			return nil, nil, fmt.Errorf("start asynq worker: %w", err)
		}
		return dispatcher, func() {
			consumer.Stop()
			_ = dispatcher.Close()
		}, nil
	case config.JobsDriverMemory, "":
		queue := jobs.NewQueue("diagnosis", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Jobs.Workers,
			BufferSize: cfg.Jobs.BufferSize,
			MaxRetries: cfg.Jobs.MaxRetries,
			RetryDelay: cfg.Jobs.RetryDelay,
			OnGiveUp:   worker.GiveUp,
			Logger:     logr,
		})
		queue.Start(context.Background())
		return queue, queue.Stop, nil
	default:
		return nil, nil, fmt.Errorf("unknown jobs driver %q", cfg.Jobs.Driver)
	}
}
