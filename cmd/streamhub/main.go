package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamhub/internal/adapter/httpserver"
	"github.com/pscheid92/streamhub/internal/adapter/metrics"
	"github.com/pscheid92/streamhub/internal/adapter/storage"
	"github.com/pscheid92/streamhub/internal/adapter/twitch"
	"github.com/pscheid92/streamhub/internal/auth"
	"github.com/pscheid92/streamhub/internal/broadcast"
	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/platform/config"
	"github.com/pscheid92/streamhub/internal/platform/logging"
	"github.com/pscheid92/streamhub/internal/platform/version"
	"github.com/pscheid92/streamhub/internal/viewer"
)

func runGracefulShutdown(srv *httpserver.Server, ctrl *viewer.Controller, hub *broadcast.Hub, storeCloser io.Closer) <-chan struct{} {
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

		ctrl.Stop()
		hub.Stop()

		if err := storeCloser.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStorage(cfg *config.Config, m *metrics.StorageMetrics) (domain.KeyValueStore, io.Closer) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closer, err := storage.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("Failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	return store, closer
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version, "storage", cfg.StorageBackend)

	reg := metrics.NewRegistry()

	store, storeCloser := setupStorage(cfg, metrics.NewStorageMetrics(reg))

	helixClient, err := twitch.NewHelixClient(cfg.TwitchClientID, cfg.TwitchAPIURL)
	if err != nil {
		slog.Error("Failed to create Twitch client", "error", err)
		os.Exit(1)
	}
	followsClient := twitch.NewFollowsClient(cfg.TwitchClientID, cfg.TwitchAPIURL)

	// Without a secret there is no app token and search stays off. Keep the interface nil, not typed-nil.
	var exchanger domain.AppTokenExchanger
	if cfg.SearchEnabled() {
		exchanger = twitch.NewAppTokenExchanger(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TokenURL())
	}

	authMgr := auth.NewManager(auth.Config{
		ClientID:     cfg.TwitchClientID,
		RedirectURI:  cfg.TwitchRedirectURI,
		AuthorizeURL: cfg.AuthorizeURL(),
	}, exchanger, helixClient, store, metrics.NewAuthMetrics(reg))

	hub := broadcast.NewHub(clock, cfg.MaxWebSocketConnections, metrics.NewWebSocketMetrics(reg))

	ctrl := viewer.New(viewer.Dependencies{
		Clock:         clock,
		Auth:          authMgr,
		Searcher:      helixClient,
		Follows:       followsClient,
		Publisher:     hub,
		SlotMetrics:   metrics.NewSlotMetrics(reg),
		SearchMetrics: metrics.NewSearchMetrics(reg),
	})
	ctrl.Start()

	srv, err := httpserver.NewServer(cfg, ctrl, hub, httpserver.Options{
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		MetricsHandler: metrics.Handler(reg),
		HealthChecks: []httpserver.HealthCheck{
			{Name: "storage", Check: func(ctx context.Context) error { return storage.Ping(ctx, store) }},
			{Name: "viewer", Check: func(context.Context) error {
				_, err := ctrl.Snapshot()
				return err
			}},
		},
	})
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, ctrl, hub, storeCloser)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
