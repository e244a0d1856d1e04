package main

import (
	"log/slog"
	"os"

	"taskman/internal/identity/config"
	httpinfra "taskman/internal/identity/infra/http"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)

	srv, err := httpinfra.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to init server", "err", err)
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}
