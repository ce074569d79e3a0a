package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/clinic-booking-agent/internal/api/router"
	"github.com/wolfman30/clinic-booking-agent/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking-agent/internal/config"
	"github.com/wolfman30/clinic-booking-agent/internal/conversation"
	"github.com/wolfman30/clinic-booking-agent/internal/http/handlers"
	"github.com/wolfman30/clinic-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting clinic booking agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"memory_backend", cfg.MemoryBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool, err := bootstrap.OpenPostgresPool(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	sqlDB, err := bootstrap.OpenSQLDB(ctx, cfg)
	if err != nil {
		return err
	}
	if sqlDB != nil {
		defer func() { _ = sqlDB.Close() }()
	}

	var redisClient *redis.Client
	if cfg.MemoryBackend == "redis" {
		redisClient = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		}
	}

	store, err := bootstrap.BuildMemoryStore(cfg, logger, redisClient, pool)
	if err != nil {
		return err
	}
	directory, err := bootstrap.BuildDirectory(cfg, sqlDB, logger)
	if err != nil {
		return err
	}
	llm, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	email, err := bootstrap.BuildEmailSender(ctx, cfg, logger)
	if err != nil {
		return err
	}

	metricsHandler, agentMetrics := setupMetrics()
	built, err := bootstrap.BuildAgent(cfg, bootstrap.AgentDeps{
		LLM:       llm,
		Directory: directory,
		Memory:    store,
		Email:     email,
		Pool:      pool,
		Metrics:   agentMetrics,
	}, logger)
	if err != nil {
		return err
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(built.Agent, logger),
		ProvidersHandler:    handlers.NewProvidersHandler(directory, built.Bookings, logger),
		ToolsHandler:        handlers.NewToolsHandler(built.Registry, store, logger),
		HealthHandler:       handlers.NewHealthHandler(healthChecks(pool, sqlDB, redisClient), logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		UserAuthSecret:      cfg.AuthJWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: turnWriteTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return store.RunSweeper(gctx, cfg.MemorySweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// turnWriteTimeout leaves room for every model call a single turn may make.
func turnWriteTimeout(cfg *appconfig.Config) time.Duration {
	iterations := cfg.AgentMaxIterations
	if iterations < 1 {
		iterations = 1
	}
	return cfg.LLMTimeout*time.Duration(iterations) + 15*time.Second
}

func setupMetrics() (http.Handler, *metrics.AgentMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	agentMetrics := metrics.NewAgentMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), agentMetrics
}

func healthChecks(pool *pgxpool.Pool, sqlDB *sql.DB, redisClient *redis.Client) map[string]handlers.Pinger {
	checks := make(map[string]handlers.Pinger)
	if pool != nil {
		checks["postgres"] = pool
	}
	if sqlDB != nil {
		checks["providers_db"] = handlers.PingFunc(sqlDB.PingContext)
	}
	if redisClient != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	return checks
}
