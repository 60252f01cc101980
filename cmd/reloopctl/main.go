package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/reloop/internal/config"
	"github.com/dukerupert/reloop/internal/database"
	"github.com/dukerupert/reloop/internal/logging"
	"github.com/spf13/cobra"
)

var (
	dbFlag       string
	logLevelFlag string
)

// env is the configuration and database shared by commands that touch the
// service's state.
type env struct {
	cfg    *config.Config
	db     *sql.DB
	logger *slog.Logger
}

func openEnv() (*env, error) {
	cfg, err := config.LoadTool()
	if err != nil {
		return nil, err
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}
	level := cfg.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger := logging.Setup(level)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	return &env{cfg: cfg, db: db, logger: logger}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}

// withEnv adapts a command body that needs the database.
func withEnv(fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, args, e)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reloopctl",
		Short:         "Operator tasks for the reloop service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path (defaults to RELOOP_DB_PATH)")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (defaults to RELOOP_LOG_LEVEL)")

	root.AddCommand(newRedemptionsCmd(), newRewardsCmd(), newPickupsCmd(), newBackupCmd(), newSeedCmd(), newQuizCmd(), newVAPIDCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
