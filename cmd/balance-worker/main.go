package main

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"wedplan/internal/amqp"
	"wedplan/internal/cli"
	"wedplan/internal/log"
	"wedplan/internal/metrics"
	"wedplan/internal/services"
)

func main() {
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentReminder)
	logger.Info("Starting balance-worker",
		"interval", cfg.ReminderInterval,
		"window_days", cfg.ReminderWindowDays,
		"urgent_days", cfg.ReminderUrgentDays)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the balance worker")
		os.Exit(1)
	}

	store, err := cli.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = store.Close()
		os.Exit(1)
	}

	m := metrics.New()
	processor := services.NewBalanceReminderProcessor(store.Backend, bus, services.BalanceReminderConfig{
		Interval:   cfg.ReminderInterval,
		WindowDays: cfg.ReminderWindowDays,
		UrgentDays: cfg.ReminderUrgentDays,
	}, m, logger)

	ctx, done := cli.GracefulShutdown(context.Background(), logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Processor stop error", log.FieldError, err)
		}
		if err := bus.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start balance reminder processor", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.ServeOps(gctx, ":"+cfg.Port, cli.OpsHandler(m, store.Backend.Ping), logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Ops server error", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Balance worker stopped")
}
