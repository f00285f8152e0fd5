package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-wishlist-sync/internal/adapter/api/rest"
	"go-wishlist-sync/internal/adapter/identity"
	"go-wishlist-sync/internal/adapter/remote"
	"go-wishlist-sync/internal/adapter/storage/postgres"
	"go-wishlist-sync/internal/adapter/storage/redis"
	"go-wishlist-sync/internal/config"
	"go-wishlist-sync/internal/core/ports"
	"go-wishlist-sync/internal/core/service"
	"go-wishlist-sync/internal/observability"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on environment variables")
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Init Tracing
	tpShutdown, err := observability.InitTracerProvider(ctx, "wishlist-sync", cfg.OtelExporterEndpoint)
	if err != nil {
		logger.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := tpShutdown(ctx); err != nil {
			logger.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// Init Store
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Identity
	session := identity.NewSession(cfg.JWTSecret, logger)

	// Remote wishlist
	remoteClient := remote.NewClient(remote.Config{
		BaseURL: cfg.WishlistAPIURL,
		Timeout: cfg.WishlistAPITimeout,
		Breaker: cfg.WishlistAPIBreaker,
	}, session, logger)

	// Service Init
	cache := service.NewLikedCache(observability.NewInstrumentedStore(store), session, logger)
	stopWatch := cache.Watch(ctx, session)
	defer stopWatch()

	reconciler := service.NewReconciler(
		cache,
		observability.NewInstrumentedRemote(remoteClient),
		session,
		observability.NewResultRecorder(logger, nil),
		service.ReconcilerConfig{
			Source:        cfg.WishlistSource,
			Country:       cfg.WishlistCountry,
			StrictMode:    cfg.WishlistStrictMode,
			RemoteTimeout: cfg.WishlistAPITimeout,
		},
		logger,
	)

	// Init Handlers
	handler := rest.NewHandler(reconciler, session, logger)
	router := rest.NewRouter(handler, rest.RequestID, rest.Logger(logger), observability.Middleware)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown
	go func() {
		logger.Info("Starting server", "addr", srv.Addr, "env", cfg.AppEnv, "store", cfg.StoreBackend, "strict_mode", cfg.WishlistStrictMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	// Let in-flight remote calls land so their results reach the cache.
	if err := reconciler.Drain(ctx); err != nil {
		logger.Warn("in-flight wishlist calls abandoned", "error", err)
	}

	logger.Info("Server exited")
}

// openStore connects the configured key-value backend.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.KeyValueStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		// Run Migrations (Apply on Startup)
		if err := postgres.RunMigrations(ctx, dbPool, logger); err != nil {
			dbPool.Close()
			return nil, nil, err
		}
		// Metrics: DB Stats Poller
		observability.StartDBStatsCollector(dbPool)
		return postgres.NewRepository(dbPool), dbPool.Close, nil
	default:
		adapter := redis.NewAdapter(cfg.RedisAddr)
		if err := adapter.Ping(ctx); err != nil {
			logger.Warn("redis not reachable yet", "addr", cfg.RedisAddr, "error", err)
		}
		return adapter, func() { _ = adapter.Close() }, nil
	}
}
