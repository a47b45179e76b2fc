package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/paperlens-backend/internal/app"
	"github.com/yungbote/paperlens-backend/internal/data/db"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "paperlens",
	Short:         "Research paper analysis service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the job worker unless RUN_WORKER=false)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), func(cfg *app.Config) { cfg.RunServer = true })
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run job workers only",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), func(cfg *app.Config) {
			cfg.RunServer = false
			cfg.RunWorker = true
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		cfg.AutoMigrate = false
		theDB, err := app.OpenDB(log, cfg)
		if err != nil {
			return err
		}
		if err := db.AutoMigrateAll(theDB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("Schema migrated", "driver", cfg.DatabaseDriver)
		return nil
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd)
}

func bootstrap() (app.Config, *logger.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return app.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	cfg.Version = version
	return cfg, log, nil
}

func run(ctx context.Context, override func(*app.Config)) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	override(&cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return err
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return err
	}
	return a.Run(ctx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
