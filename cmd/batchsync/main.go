package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/westmoney/batchsync/internal/config"
	dbRedis "github.com/westmoney/batchsync/internal/db/redis"
	logpkg "github.com/westmoney/batchsync/internal/logger"
	"github.com/westmoney/batchsync/internal/metrics"
	jobrepo "github.com/westmoney/batchsync/internal/repository/job"
	chiTransport "github.com/westmoney/batchsync/internal/transport/chi"
	"github.com/westmoney/batchsync/internal/transport/hubspot"
	kafkaTransport "github.com/westmoney/batchsync/internal/transport/kafka"
	"github.com/westmoney/batchsync/internal/usecase/batchsync"
	healthuc "github.com/westmoney/batchsync/internal/usecase/health"
	jobuc "github.com/westmoney/batchsync/internal/usecase/job"
	"github.com/westmoney/batchsync/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting batchsync API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("hubspot_base_url", cfg.HubSpot.BaseURL),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register sync metrics explicitly (no init())
	metrics.RegisterSyncMetrics()

	crm := hubspot.New(hubspot.Config{
		BaseURL:       cfg.HubSpot.BaseURL,
		Token:         cfg.HubSpot.Token,
		Timeout:       time.Duration(cfg.HubSpot.TimeoutSec) * time.Second,
		RatePerSecond: cfg.HubSpot.RatePerSecond,
		Burst:         cfg.HubSpot.Burst,
		Logger:        logger,
	})

	policy := retryPolicy(cfg.Sync)
	if err := policy.Validate(); err != nil {
		logger.Fatal("Invalid retry policy", zap.Error(err))
	}
	engine := batchsync.New(batchsync.NewInstrumentedClient(crm, "hubspot", logger), policy, logger)

	jobSvc := jobuc.New(engine, jobrepo.New(store, cfg.Storage.JobTTL()), logger).
		WithContactSearcher(crm).
		WithMaxTargets(cfg.Sync.MaxBatchSize)

	if cfg.Events.Enabled() {
		publisher, err := kafkaTransport.NewPublisher(kafkaTransport.Config{
			Brokers:      cfg.Events.Brokers,
			Topic:        cfg.Events.Topic,
			WriteTimeout: time.Duration(cfg.Events.WriteTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Fatal("Failed to create event publisher", zap.Error(err))
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("Error closing event publisher", zap.Error(err))
			}
		}()
		jobSvc = jobSvc.WithPublisher(publisher)
		logger.Info("Publishing batch events",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
	}

	healthSvc := healthuc.New(store, crm, "hubspot")

	server := chiTransport.NewServer(jobSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.Recoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEvent(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	// In-flight batches finish inside the shutdown window; results already
	// persisted are unaffected.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func retryPolicy(c config.SyncConfig) batchsync.RetryPolicy {
	return batchsync.RetryPolicy{
		MaxAttempts:    c.MaxAttempts,
		BaseDelay:      time.Duration(c.BaseDelayMs) * time.Millisecond,
		MaxDelay:       time.Duration(c.MaxDelayMs) * time.Millisecond,
		Jitter:         c.Jitter,
		CallTimeout:    time.Duration(c.CallTimeoutSec) * time.Second,
		BatchTimeout:   time.Duration(c.BatchTimeoutSec) * time.Second,
		MaxConcurrency: c.MaxConcurrency,
	}
}
