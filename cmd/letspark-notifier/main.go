package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/app"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	worker, err := app.NewNotifier(cfg, logger.With("component", "notifier"))
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}

	if err := worker.Run(context.Background()); err != nil {
		logger.Error("notifier finished with error", "error", err)
		os.Exit(1)
	}
}
