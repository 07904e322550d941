package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/api"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/config"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/maintenance"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/recorder"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP recorder",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(cfgPath, slog.Default())
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}
	cfg := loader.Config()

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// ── Recorder ─────────────────────────────────────────────────────────────
	rec, err := recorder.New(cfg, logger)
	if err != nil {
		slog.Error("failed to open recorder", "err", err)
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			slog.Error("final flush failed", "err", err)
		}
	}()
	rec.ResumeGenerators()

	// ── Periodic maintenance ─────────────────────────────────────────────────
	maint, err := maintenance.New(cfg.Maintenance.Schedule, rec.Maintain, logger)
	if err != nil {
		return err
	}
	maint.Start()
	defer maint.Stop()

	// ── Hot-reload watcher ───────────────────────────────────────────────────
	loader.OnChange(func(next *config.Config) {
		rec.ApplyConfig(next)
		if err := maint.Reschedule(next.Maintenance.Schedule); err != nil {
			slog.Warn("hot-reload kept old maintenance schedule", "err", err)
		}
		slog.Info("config hot-reloaded")
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.New(rec, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr, "service", cfg.ServiceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case err := <-errc:
		if err != nil {
			slog.Error("server error", "err", err)
			return err
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("shutdown incomplete", "err", err)
	}
	return nil
}
