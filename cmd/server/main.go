package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/NICValidator/internal/cache"
	"github.com/JonMunkholm/NICValidator/internal/config"
	"github.com/JonMunkholm/NICValidator/internal/core"
	"github.com/JonMunkholm/NICValidator/internal/logging"
	"github.com/JonMunkholm/NICValidator/internal/metrics"
	"github.com/JonMunkholm/NICValidator/internal/store"
	"github.com/JonMunkholm/NICValidator/internal/web"
)

func main() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	if cfg.Database.Migrate {
		if err := store.Migrate(cfg.Database.URL); err != nil {
			return err
		}
	}

	pool, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts := []core.Option{core.WithObserver(m)}
	webOpts := []web.Option{web.WithMetrics(m, reg)}

	stats, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	if stats != nil {
		defer stats.Close()
		opts = append(opts, core.WithStatsCache(stats))
		webOpts = append(webOpts, web.WithHealthCheck("cache", stats.Ping))
		slog.Info("stats cache enabled", "ttl", cfg.Cache.TTL)
	}

	service, err := core.NewService(store.New(pool), cfg, opts...)
	if err != nil {
		return err
	}

	server := web.NewServer(service, cfg, webOpts...)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.UploadLimiterStatus(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	slog.Info("server stopped")
	return nil
}
