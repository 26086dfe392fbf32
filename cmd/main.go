package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/podplay/internal/metrics"
	"github.com/desertthunder/podplay/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := defaultConfigPath
	if v := os.Getenv("PODPLAY_CONFIG"); v != "" {
		configPath = v
	}

	config, err := shared.ResolveConfig(configPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(); err != nil {
		logger.Fatalf("config error: %v", err)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
		Metrics:    metrics.New(),
	})

	app := &cli.Command{
		Name:     "podplay",
		Usage:    "Play podcast episodes and keep their state in a local store",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
