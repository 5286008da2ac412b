package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kapu/famescale/internal/app"
	"github.com/kapu/famescale/internal/config"
	"github.com/kapu/famescale/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const buildTimeout = 30 * time.Second

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "famescale",
	Short:         "Fetch, classify and browse character fame levels",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
	rootCmd.AddCommand(showCmd, searchCmd, characterCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and assembles the services a command needs.
func bootstrap(ctx context.Context) (*app.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	buildCtx, cancel := context.WithTimeout(ctx, buildTimeout)
	defer cancel()

	container, err := app.Build(buildCtx, cfg, logger)
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		_ = logger.Sync()
		return nil, err
	}
	return container, nil
}

func shutdown(container *app.Container) {
	container.Close()
	_ = container.Logger.Sync()
}
