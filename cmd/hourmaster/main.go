// Entry point for the hourmaster evaluation service: debt engine behind a
// chi HTTP API, SQLite state, Fitbit as the activity provider.
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

	"github.com/hazyhaar/hourmaster/activity"
	"github.com/hazyhaar/hourmaster/grabber"
	"github.com/hazyhaar/hourmaster/server"
	"github.com/hazyhaar/hourmaster/store"
)

func main() {
	cfg := server.DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := server.LoadConfig(path)
		if err != nil {
			slog.Error("config load failed", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if listen := os.Getenv("LISTEN"); listen != "" {
		cfg.Listen = listen
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("store open failed", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	factory := func(creds store.Credentials) (grabber.ActivityGrabber, error) {
		return grabber.NewFitbit(grabber.FitbitAuth{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Token:        creds.ClientToken,
		}, grabber.FitbitConfig{
			BaseURL: cfg.Provider.BaseURL,
			Timeout: cfg.Provider.Timeout,
			Logger:  logger,
		})
	}

	svc := activity.NewService(st, activity.NewSummaryCache(time.Minute), factory, logger)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.New(st, svc, logger).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("hourmaster listening", "addr", cfg.Listen, "db", cfg.DBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("hourmaster stopped")
}
