package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/core"
	"budget/internal/kv"
	"budget/internal/log"
	gsheet "budget/internal/sheets/google"
	"budget/internal/worker"
)

// backfillInterval is how often stored transactions are re-checked against
// the sheet to pick up events lost while the broker was down.
const backfillInterval = 15 * time.Minute

func main() {
	boot := log.New(log.DefaultConfig())
	if err := cli.LoadEnvFile(); err != nil {
		boot.Warn("Failed to load .env file", log.FieldError, err)
	}

	cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	if err != nil {
		cli.Fatal(boot, "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout)
	logger.Info("Starting budget-worker", log.FieldOperation, log.OpStartup)

	ctx := context.Background()

	// The backend is read for the startup backfill only.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err, "backend", backendCfg.Type)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
	}, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.Connect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 10, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to connect to AMQP", err)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(sheetsClient, logger)

	sigCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		return amqpClient.ConsumeTransactionAdded(gctx, mirror.HandleTransactionAdded)
	})
	g.Go(func() error {
		ticker := time.NewTicker(backfillInterval)
		defer ticker.Stop()
		for {
			backfill(gctx, logger, result.Backend, mirror)
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		// Not a signal: the consumer lost its broker, so exit and let the
		// supervisor restart the worker.
		logger.Error("Worker stopped", log.FieldError, err)
		amqpClient.Close()
		os.Exit(1)
	}
	<-done
	logger.Info("Worker shutdown complete")
}

// backfill mirrors stored transactions missing from the sheet. Failures are
// logged and retried on the next tick.
func backfill(ctx context.Context, logger *log.Logger, store kv.Store, mirror *worker.MirrorWorker) {
	txs, err := storedTransactions(ctx, store)
	if err != nil {
		logger.WarnContext(ctx, "Backfill skipped", log.FieldError, err)
		return
	}
	added, err := mirror.Backfill(ctx, txs)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Backfill failed", log.FieldError, err, log.FieldCount, added)
		return
	}
	if added > 0 {
		logger.InfoContext(ctx, "Backfill mirrored missing transactions", log.FieldCount, added)
	}
}

func storedTransactions(ctx context.Context, store kv.Store) ([]core.Transaction, error) {
	data, err := store.Get(ctx, kv.TransactionsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	return kv.DecodeTransactions(data)
}
