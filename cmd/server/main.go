package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/fieldpreview/internal/config"
	"github.com/JonMunkholm/fieldpreview/internal/history"
	"github.com/JonMunkholm/fieldpreview/internal/logging"
	"github.com/JonMunkholm/fieldpreview/internal/preview"
	"github.com/JonMunkholm/fieldpreview/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.Enabled(),
		"preview_max_concurrent", cfg.Preview.MaxConcurrent,
		"preview_fetch_timeout", cfg.Preview.FetchTimeout.String(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	store, closeStore, err := openHistory(ctx, cfg)
	if err != nil {
		slog.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	fetcher := preview.NewHTTPFetcher(cfg.Preview.FetchTimeout, cfg.Preview.UserAgent)
	limiter := preview.NewLimiter(cfg.Preview.MaxConcurrent, cfg.Preview.MaxWait)
	service := preview.NewService(fetcher, limiter, store, preview.Options{
		SampleSize:   cfg.Preview.SampleSize,
		FetchTimeout: cfg.Preview.FetchTimeout,
		MaxJSONBytes: cfg.Preview.MaxJSONBytes,
		UnionFields:  cfg.Preview.UnionFields,
	})

	server := web.NewServer(service, store, cfg)

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go history.StartPruner(jobCtx, store, history.PruneConfig{
		Retention: cfg.History.Retention,
		Interval:  cfg.History.PruneInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for previews to complete", "active", status.Active)
			if err := service.WaitForPreviews(shutdownCtx); err != nil {
				slog.Warn("previews did not complete in time", "error", err)
			} else {
				slog.Info("all previews completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// openHistory connects to PostgreSQL when a database is configured and
// falls back to an in-memory log otherwise.
func openHistory(ctx context.Context, cfg *config.Config) (history.Store, func(), error) {
	if !cfg.Database.Enabled() {
		slog.Info("no database configured, keeping history in memory",
			"capacity", cfg.History.MemoryCapacity,
		)
		return history.NewMemoryStore(cfg.History.MemoryCapacity), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	store := history.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
