package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/fintant/backend/internal/cache"
	"example.com/fintant/backend/internal/config"
	"example.com/fintant/backend/internal/database"
	"example.com/fintant/backend/internal/jobs"
	"example.com/fintant/backend/internal/repository"
	"example.com/fintant/backend/internal/server"
	"example.com/fintant/backend/internal/session"
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if cfg.Database.Migrate {
		if err := database.Migrate(cfg.Database, logger); err != nil {
			logger.Error("failed to apply migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	db, err := database.Open(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	responses, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Error("failed to create response cache", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer responses.Close()

	sessions := session.NewStore()
	defer sessions.Close()

	janitor, err := jobs.NewJanitor(cfg.Jobs.JanitorSchedule, sessions, repository.NewRefreshTokenRepository(db), logger)
	if err != nil {
		logger.Error("failed to schedule janitor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	janitor.Start()

	e := server.New(cfg, logger, db, sessions, responses)
	httpServer := server.NewHTTPServer(cfg.Server, e)

	go func() {
		logger.Info("http server started", slog.String("addr", httpServer.Addr))
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownSignal

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
	janitor.Stop(shutdownCtx)
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
