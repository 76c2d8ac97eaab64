package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stewardhq/steward/pkg/api"
	"github.com/stewardhq/steward/pkg/audit"
	"github.com/stewardhq/steward/pkg/config"
	"github.com/stewardhq/steward/pkg/middleware"
	"github.com/stewardhq/steward/pkg/observability"
	"github.com/stewardhq/steward/pkg/orgs"
	"github.com/stewardhq/steward/pkg/policy"
	"github.com/stewardhq/steward/pkg/rbac"
	"github.com/stewardhq/steward/pkg/sessions"
	"github.com/stewardhq/steward/pkg/storage/postgres"
	"github.com/stewardhq/steward/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting steward")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize telemetry")
		os.Exit(1)
	}

	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	if err := rbac.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("failed to run migrations")
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unavailable, rate limiting will fail open")
	}

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		go postgres.WatchPool(ctx, db, metrics, 15*time.Second)
	}

	userStore := users.NewPostgresStore(db)
	orgService := orgs.NewPostgresService(db)
	rbacStore := rbac.NewStore(db)
	sessionStore := sessions.NewStore(db, cfg.Sessions.TTL)
	auditStore := audit.NewStore(db, logger)

	evaluator := policy.NewEvaluator(userStore, orgService)
	userService := users.NewService(userStore, evaluator, orgService, sessionStore, auditStore)

	server := api.NewServer(api.Deps{
		Logger:   logger,
		Metrics:  metrics,
		Users:    userService,
		Policy:   evaluator,
		RBAC:     rbacStore,
		Orgs:     orgService,
		Sessions: sessionStore,
		Audit:    auditStore,
	})

	authMW := middleware.NewSessionAuth(sessionStore, userStore)
	rateMW := middleware.NewRateLimitMiddleware(redisClient, metrics, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Handler(authMW, rateMW),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate listener so probes bypass auth and
	// rate limiting.
	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.MetricsHandler(registry))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	sweeper := sessions.NewSweeper(sessionStore, logger, cfg.Sessions.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		logger.WithError(err).Error("failed to start session sweeper")
		os.Exit(1)
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.Register(func(ctx context.Context) error {
		sweeper.Stop()
		return nil
	})
	shutdown.Register(healthServer.Shutdown)
	if otelProviders != nil {
		shutdown.Register(otelProviders.Shutdown)
	}
	shutdown.Register(func(context.Context) error {
		cancel()
		return nil
	})

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("api server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
