package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mushycosmas/kariakooshop/internal/app"
	"github.com/mushycosmas/kariakooshop/internal/config"
	"github.com/mushycosmas/kariakooshop/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml)")
	addr := flag.String("addr", "", "HTTP listen address override")
	logLevel := flag.String("log-level", "", "log level override (trace, debug, info, warn, error)")
	flag.Parse()

	bootLogger := log.New("info")

	cfg, resolvedPath, err := config.Load(bootLogger, *configPath)
	if err != nil {
		bootLogger.Fatal().Err(err).Str("path", resolvedPath).Msg("failed to load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}

	logger.Info().Str("addr", cfg.Addr).Str("config", resolvedPath).Msg("starting kariakooshop chat server")
	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
