package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wedplan/internal/cli"
	"wedplan/internal/config"
	"wedplan/internal/log"
	"wedplan/internal/reference"
	"wedplan/internal/services"
)

var (
	flagUser    string
	flagDBPath  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "wedplanctl",
	Short:         "Wedding budget ledger administration",
	Long:          "Inspect and edit wedding budget ledgers stored in the wedplan SQLite database.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.Error("  "+err.Error()))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", os.Getenv("WEDPLAN_USER"), "Ledger owner (defaults to $WEDPLAN_USER)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database path (defaults to $SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log storage activity to stderr")
}

// session is everything a ledger command needs, opened from the environment
// and the persistent flags.
type session struct {
	cfg    *config.Config
	logger *log.Logger
	ref    *reference.Data
	ledger *services.LedgerService
	close  func()
}

func loadConfig() (*config.Config, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	// wedplanctl always works on the SQLite ledger
	cfg.DataBackend = config.BackendSQLite
	if flagDBPath != "" {
		cfg.SQLiteDBPath = flagDBPath
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *log.Logger {
	lc := cfg.LoggerConfig(log.ComponentCLI)
	lc.Output = os.Stderr
	if !flagVerbose {
		lc.Level = slog.LevelWarn
	}
	return log.New(lc)
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	ref, err := cli.LoadReference(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		logger: logger,
		ref:    ref,
		ledger: services.NewLedgerService(store.Backend, ref, services.WithLogger(logger)),
		close: func() {
			if err := store.Close(); err != nil {
				logger.Warn("Backend close error", log.FieldError, err)
			}
		},
	}, nil
}

func requireUser() (string, error) {
	if flagUser == "" {
		return "", errors.New("no ledger owner: pass --user or set WEDPLAN_USER")
	}
	return flagUser, nil
}

// withLedger opens a session for the current user and runs fn against it.
func withLedger(cmd *cobra.Command, fn func(ctx context.Context, s *session, userID string) error) error {
	userID, err := requireUser()
	if err != nil {
		return err
	}
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()
	return fn(cmd.Context(), s, userID)
}
