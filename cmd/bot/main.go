package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/app"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.SetupLogger(cfg.LogConfig(), "bot.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("GNDC bot starting",
		slog.String("version", cfg.Version),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("bot_file", cfg.BotFile),
	)

	buildCtx, buildCancel := context.WithTimeout(context.Background(), constants.AppTimeout.Build)
	runtime, err := app.BuildRuntime(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", slog.Any("error", err))
		os.Exit(1)
	}
	defer runtime.Close()

	runtime.Run()
}
