package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"altum/internal/app"
	"altum/internal/config"
	"altum/internal/infrastructure"
	"altum/pkg/contracts"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, contracts.Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	application, err := app.NewApplication(cfg, logger, providers)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("version", contracts.GetFullVersionString()),
		slog.Int("port", cfg.Server.Port))

	return application.Run(ctx)
}
