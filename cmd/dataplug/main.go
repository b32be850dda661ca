package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dataplug/internal/core/ports"
	"dataplug/internal/core/services"
	httphandlers "dataplug/internal/handlers/http"
	backupinfra "dataplug/internal/infrastructure/backup"
	"dataplug/internal/infrastructure/distributed"
	"dataplug/internal/infrastructure/middleware"
	"dataplug/internal/infrastructure/monitoring"
	"dataplug/internal/infrastructure/reliability"
	repositories "dataplug/internal/infrastructure/repositories"
	"dataplug/pkg/circuitbreaker"
	"dataplug/pkg/config"
	"dataplug/pkg/logger"
	"dataplug/pkg/retry"
	"dataplug/pkg/tracing"
	"dataplug/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var configPaths = []string{
	"configs/config.yaml",
	"./configs/config.yaml",
	"/etc/dataplug/config.yaml",
	"config.yaml",
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("DATAPLUG_CONFIG"); path != "" {
		return config.Load(path)
	}
	var lastErr error
	for _, path := range configPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := config.Load(path)
		if err == nil {
			return cfg, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	// no file found: defaults plus environment
	return config.Load("")
}

func main() {
	startTime := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		logger.New("info").Sugar().Fatalw("failed to load configuration", "error", err)
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "dataplug",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	repoFactory, err := repositories.NewRepositoryFactory(rootCtx, cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.Enabled = cfg.Reliability.Retry.Enabled
	retryCfg.MaxAttempts = cfg.Reliability.Retry.MaxAttempts
	retryCfg.InitialDelay = cfg.Reliability.Retry.InitialDelay
	retryCfg.MaxDelay = cfg.Reliability.Retry.MaxDelay

	cbCfg := circuitbreaker.DefaultConfig()
	cbCfg.FailureThreshold = cfg.Reliability.CircuitBreaker.FailureThreshold
	cbCfg.SuccessThreshold = cfg.Reliability.CircuitBreaker.SuccessThreshold
	cbCfg.Timeout = cfg.Reliability.CircuitBreaker.Timeout

	streamRepo := reliability.NewStreamRepositoryWrapper(repoFactory.StreamRepository(), retryCfg, cbCfg, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := monitoring.NewPrometheusCollector(registry)

	recorder := services.NewUsageRecorder(repoFactory.UsageEventRepository(), services.RecorderOptions{
		BatchSize:     cfg.Usage.BatchSize,
		FlushInterval: cfg.Usage.FlushInterval,
		WriteTimeout:  cfg.Usage.WriteTimeout,
	}, collector, log)

	var directory ports.DirectoryService = services.NewDirectoryService(streamRepo, services.DirectoryOptions{
		ResultLimit:     cfg.Directory.ResultLimit,
		CandidateWindow: cfg.Directory.CandidateWindow,
	}, collector, log)

	var listeners []ports.CatalogListener
	var cachedDirectory *services.CachedDirectoryService
	if cfg.Directory.CacheTTL > 0 {
		cachedDirectory = services.NewCachedDirectoryService(directory, cfg.Directory.CacheTTL)
		defer cachedDirectory.Stop()
		directory = cachedDirectory
		listeners = append(listeners, cachedDirectory)
	}

	if client := repoFactory.RedisClient(); client != nil {
		bus := distributed.NewEventBus(client, utils.GenerateRequestID(), log)
		listeners = append(listeners, bus)
		if cachedDirectory != nil {
			go func() {
				err := bus.Subscribe(rootCtx, func(event *distributed.Event) error {
					if event.Type == distributed.EventStreamAdded {
						cachedDirectory.Invalidate()
					}
					return nil
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Warnw("catalog event subscription ended", "error", err)
				}
			}()
		}
	}

	sessions := services.NewSessionService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	catalog := services.NewCatalogService(streamRepo, collector, log, listeners...)
	usage := services.NewUsageService(streamRepo, recorder, collector, log)
	probe := services.NewProbeService(cfg.Probe.Timeout, collector, log)
	admin := services.NewAdminService(streamRepo, repoFactory.AccountRepository(), services.AdminOptions{
		AllowedEmails: cfg.Admin.AllowedEmails,
		ServiceKey:    cfg.Admin.ServiceKey,
	}, log)

	if cfg.Admin.ServiceKey == "" {
		log.Warn("admin.service_key is empty; account listing will fail with a configuration error")
	}

	var snapshots *backupinfra.Scheduler
	if cfg.Snapshots.Enabled {
		archive, err := backupinfra.NewArchive(rootCtx, cfg)
		if err != nil {
			log.Fatalw("failed to open snapshot storage", "error", err)
		}
		snapshots = backupinfra.NewScheduler(archive, streamRepo, repoFactory.AccountRepository(), backupinfra.Config{
			Interval:  cfg.Snapshots.Interval,
			Retention: cfg.Snapshots.Retention,
		}, log)
		if lock := repoFactory.SnapshotLock(time.Minute); lock != nil {
			snapshots.WithLock(lock)
		}
		go snapshots.Start(rootCtx)
		log.Infow("catalog snapshots enabled",
			"target", cfg.Snapshots.Target,
			"interval", cfg.Snapshots.Interval.String(),
		)
	}

	health := monitoring.NewHealthChecker()
	health.AddPingCheck("store", repoFactory.HealthCheck, 2*time.Second)
	health.AddRepositoryCheck(streamRepo, 2*time.Second)
	health.AddBreakerCheck("stream_store_circuit", streamRepo.State)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(),
		middleware.RequestLoggerMiddleware(log, collector),
		middleware.NewHTTPRateLimitMiddleware(cfg),
		middleware.ErrorHandlerMiddleware(log),
		middleware.SessionMiddleware(sessions, log),
	)

	httphandlers.NewStreamHandler(directory, catalog, usage, probe).SetupRoutes(router)
	httphandlers.NewAdminHandler(admin).SetupRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
			"store":     repoFactory.Driver(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting DataPlug server",
			"address", cfg.Server.Address,
			"store", repoFactory.Driver(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	log.Info("shutting down DataPlug server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	} else {
		log.Info("server shutdown gracefully")
	}

	if snapshots != nil {
		snapshots.Stop()
	}
	cancelRoot()

	if err := recorder.Stop(shutdownCtx); err != nil {
		log.Errorw("usage events not flushed before shutdown", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer provider", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("error closing repository factory", "error", err)
	}

	log.Info("DataPlug server stopped")
}
