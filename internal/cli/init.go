// Package cli provides common initialization utilities shared by
// cmd/wedplan, cmd/wedplan-worker, cmd/balance-worker and cmd/wedplanctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wedplan/internal/amqp"
	"wedplan/internal/backend"
	"wedplan/internal/config"
	"wedplan/internal/log"
	"wedplan/internal/reference"
	"wedplan/internal/sheets/google"
)

// SetupLogger builds the component logger from the logging settings and sets
// it as the process default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(cfg.LoggerConfig(component))
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig is LoadAndValidateConfig for binaries: it loads .env, then
// exits the process on validation failure.
func MustLoadConfig() *config.Config {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// LoadReference reads the reference tables from REFERENCE_DATA_PATH, or the
// built-in tables when it is unset.
func LoadReference(cfg *config.Config, logger *log.Logger) (*reference.Data, error) {
	if cfg.ReferenceDataPath == "" {
		return reference.Default(), nil
	}
	ref, err := reference.Load(cfg.ReferenceDataPath)
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	logger.Info("Loaded reference data", "path", cfg.ReferenceDataPath,
		"categories", len(ref.Categories()), "regions", len(ref.Regions()))
	return ref, nil
}

// OpenBackend creates the configured ledger store.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// ConnectAMQP returns a bus client, or nil when AMQP is not configured or the
// broker cannot be reached. Callers treat nil as "do not publish".
func ConnectAMQP(cfg *config.Config, logger *log.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, ledger changes will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without publishing", log.FieldError, err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// NewSheetsExporter builds the Google Sheets report and reminder writer.
func NewSheetsExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (*google.Client, error) {
	client, err := google.NewClient(ctx, google.Config{
		SpreadsheetID:     cfg.GoogleSpreadsheetID,
		CredentialsJSON:   cfg.GoogleServiceAccountJSON,
		CredentialsFile:   cfg.GoogleServiceAccountFile,
		ReportSheetPrefix: cfg.GoogleReportSheetPrefix,
		RemindersSheet:    cfg.GoogleRemindersSheet,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// GracefulShutdown returns a context cancelled on SIGINT, SIGTERM or when
// parent is done. After that, cleanup runs with a context bounded by timeout
// and the returned channel is closed once it has finished.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has run.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
