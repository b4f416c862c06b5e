package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedpulse/internal/app"
	"github.com/pscheid92/feedpulse/internal/appview"
	"github.com/pscheid92/feedpulse/internal/config"
	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/pscheid92/feedpulse/internal/feed"
	"github.com/pscheid92/feedpulse/internal/firehose"
	"github.com/pscheid92/feedpulse/internal/logging"
	"github.com/pscheid92/feedpulse/internal/postgres"
	"github.com/pscheid92/feedpulse/internal/redis"
	"github.com/pscheid92/feedpulse/internal/server"
	"github.com/pscheid92/feedpulse/internal/settings"
	"github.com/pscheid92/feedpulse/internal/telemetry"
)

func setupConfig() *config.Config {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupDebouncer(cfg *config.Config, clock clockwork.Clock) (domain.Debouncer, func()) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, using in-process refresh debouncer")
		return redis.NewMemoryDebouncer(clock), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return redis.NewDebouncer(client), func() { _ = client.Close() }
}

func setupTelemetry(cfg *config.Config, clock clockwork.Clock) domain.TelemetrySink {
	if cfg.NewRelicAPIKey == "" {
		return telemetry.NoopSink{}
	}
	return telemetry.NewNewRelicSink(cfg.NewRelicAPIKey, clock)
}

func runGracefulShutdown(srv *server.Server, appSvc *app.Service) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		appSvc.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	provider, err := settings.Load(cfg.SettingsPath, clock)
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	pool := setupDB(cfg)
	defer pool.Close()

	debouncer, closeDebouncer := setupDebouncer(cfg, clock)
	defer closeDebouncer()

	store := postgres.NewScoreStore(pool)
	content := appview.NewClient(cfg.AppviewURL)
	sink := setupTelemetry(cfg, clock)

	ingester := feed.NewIngester(provider, sink, clock, cfg.PrimaryLang)
	refresher := feed.NewRefresher(store, content, provider, debouncer, clock)
	reaper := feed.NewReaper(store, provider, clock)
	composer := feed.NewComposer(store, provider, clock)
	subscriber := firehose.NewSubscriber(cfg.FirehoseURL, cfg.Hostname, ingester, store, store, provider, clock)

	appSvc := app.NewService(provider, subscriber, refresher, reaper)
	appSvc.Start()

	srv := server.NewServer(cfg, composer, refresher, pool)
	done := runGracefulShutdown(srv, appSvc)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
