package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/fittrack-backend/internal/config"
	"github.com/sandeepkv93/fittrack-backend/internal/database"
	"github.com/sandeepkv93/fittrack-backend/internal/di"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
	"github.com/sandeepkv93/fittrack-backend/internal/tools/common"
	"github.com/sandeepkv93/fittrack-backend/internal/tools/obscheck"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "fittrack-api",
		Short:         "Fitness tracking API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return common.LoadEnvFile(envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional KEY=VALUE file loaded before configuration")
	cmd.AddCommand(newServeCommand(), newMigrateCommand(), obscheck.NewRootCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bootLogger := observability.NewLogger(cfg, nil)
	runtime, err := observability.InitRuntime(ctx, cfg, bootLogger)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	logger := observability.NewLogger(cfg, runtime.LoggerProvider)
	slog.SetDefault(logger)

	a, err := di.InitializeApp(cfg, logger, runtime)
	if err != nil {
		_ = runtime.Shutdown(context.Background())
		return fmt.Errorf("initialize app: %w", err)
	}
	logger.Info("starting api", "addr", cfg.HTTPAddr)
	return a.Run(ctx)
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := observability.NewLogger(cfg, nil)
			cfg.DBAutoMigrate = false
			db, err := database.Open(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()
			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Info("database schema migrated", "driver", cfg.DBDriver)
			return nil
		},
	}
}
