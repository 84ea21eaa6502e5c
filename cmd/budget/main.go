package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"budget/internal/amqp"
	"budget/internal/analytics"
	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/services"
)

func main() {
	boot := log.New(log.DefaultConfig())
	if err := cli.LoadEnvFile(); err != nil {
		boot.Warn("Failed to load .env file", log.FieldError, err)
	}

	cfg, err := cli.LoadAndValidateConfig(nil)
	if err != nil {
		cli.Fatal(boot, "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout)
	logger.Info("Starting budget server", log.FieldOperation, log.OpStartup)

	ctx := context.Background()

	// Storage backend
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err, "backend", backendCfg.Type)
	}

	opts := []services.StoreOption{services.WithLogger(logger)}

	// Events are optional; without a broker transactions are only stored.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.Connect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction events disabled", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(amqpClient))
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	store := services.NewTransactionStore(result.Backend, opts...)
	store.Load(ctx)

	// Dashboard summaries are cached per store version and month.
	summaries := cache.NewLRUCache[analytics.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(summaries)
	caches.StartCleanup(ctx, cfg.SummaryCacheTTL)

	dashboard := services.NewDashboardService(store, summaries, services.WithDashboardLogger(logger))

	srv := apphttp.NewServer(net.JoinHostPort("", cfg.Port), apphttp.Deps{
		Store:     store,
		Dashboard: dashboard,
		Backend:   result.Backend,
		Logger:    logger,
		Currency:  cfg.Currency,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	sigCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if store.Dirty() {
			if err := store.Flush(ctx); err != nil {
				logger.Error("Unsaved transactions could not be written", log.FieldError, err)
			}
		}
		store.Close()
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Listening", "port", cfg.Port, "backend", backendCfg.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	<-sigCtx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
