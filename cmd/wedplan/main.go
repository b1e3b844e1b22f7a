package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"wedplan/internal/cli"
	apphttp "wedplan/internal/http"
	"wedplan/internal/log"
	"wedplan/internal/metrics"
	"wedplan/internal/services"
)

func main() {
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ref, err := cli.LoadReference(cfg, logger)
	if err != nil {
		logger.Error("Failed to load reference data", log.FieldError, err)
		os.Exit(1)
	}

	store, err := cli.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	m := metrics.New()
	ledgerOpts := []services.Option{services.WithMetrics(m), services.WithLogger(logger)}
	bus := cli.ConnectAMQP(cfg, logger)
	if bus != nil {
		ledgerOpts = append(ledgerOpts, services.WithPublisher(bus))
	}
	ledger := services.NewLedgerService(store.Backend, ref, ledgerOpts...)

	serverOpts := []apphttp.Option{
		apphttp.WithMetrics(m),
		apphttp.WithLogger(logger),
		apphttp.WithReadiness(store.Backend.Ping),
	}
	if cfg.GoogleSpreadsheetID != "" {
		exporter, err := cli.NewSheetsExporter(context.Background(), cfg, logger)
		if err != nil {
			logger.Warn("On-demand report export disabled", log.FieldError, err)
		} else {
			serverOpts = append(serverOpts, apphttp.WithReportWriter(exporter))
		}
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, ledger, serverOpts...)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(context.Background(), logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if bus != nil {
			if err := bus.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting wedplan server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", bus != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
