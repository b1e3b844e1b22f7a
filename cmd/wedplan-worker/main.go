package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"wedplan/internal/amqp"
	"wedplan/internal/cli"
	"wedplan/internal/config"
	"wedplan/internal/log"
	"wedplan/internal/metrics"
	"wedplan/internal/services"
	"wedplan/internal/worker"
)

func main() {
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting wedplan-worker")

	if err := cfg.ValidateExporter(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend selected; the worker cannot see ledgers written by the server")
	}

	ref, err := cli.LoadReference(cfg, logger)
	if err != nil {
		logger.Error("Failed to load reference data", log.FieldError, err)
		os.Exit(1)
	}

	store, err := cli.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	exporter, err := cli.NewSheetsExporter(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		_ = store.Close()
		os.Exit(1)
	}

	bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = store.Close()
		os.Exit(1)
	}

	m := metrics.New()
	ledger := services.NewLedgerService(store.Backend, ref, services.WithLogger(logger))
	exportWorker := worker.NewExportWorker(ledger, exporter, exporter, m, logger)

	ctx, done := cli.GracefulShutdown(context.Background(), logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := bus.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	// Ledgers changed while the worker was down are exported before consuming.
	logger.Info("Performing startup export...")
	if err := exportWorker.StartupExport(ctx, store.Backend); err != nil {
		logger.Error("Startup export failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := bus.Consume(gctx, exportWorker.Handlers())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return cli.ServeOps(gctx, ":"+cfg.Port, cli.OpsHandler(m, store.Backend.Ping), logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
