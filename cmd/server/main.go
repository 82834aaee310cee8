package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"olago/internal/app"
	"olago/internal/config"
	"olago/internal/handler"
	"olago/internal/identity"
	"olago/internal/middleware"
	internalRedis "olago/internal/redis"
	"olago/internal/repository"
	"olago/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
			nrApp = nil
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
			defer nrApp.Shutdown(5 * time.Second)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// PostgreSQL is only needed by the postgres store.
	var db *sql.DB
	if cfg.Store.Backend == config.StorePostgres {
		db, err = app.NewDatabase(connectCtx, cfg.Database, nrApp)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("connected to PostgreSQL", zap.String("db", cfg.Database.DBName))
	}

	// Redis backs idempotency keys and, optionally, the snapshot store.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(connectCtx, cfg.Redis, nrApp)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	store, err := app.NewStore(connectCtx, cfg, db, redisClient)
	if err != nil {
		return err
	}

	strategy, err := service.ParseMatchStrategy(cfg.Engine.MatchStrategy)
	if err != nil {
		return err
	}
	engine := service.NewEngine(service.EngineConfig{
		Strategy:       strategy,
		Notifier:       service.NewNotificationService(logger.Named("notify")),
		DefaultBalance: cfg.Engine.DefaultBalance,
	})
	if err := app.LoadOrSeed(connectCtx, engine, store, cfg.Engine.SeedDemoData, logger); err != nil {
		return err
	}

	server := wireServer(cfg, engine, store, redisClient, nrApp, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Backend),
			zap.String("match", string(strategy)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	cfg *config.Config,
	engine *service.Engine,
	store repository.Store,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	logger *zap.Logger,
) *http.Server {
	persister := app.NewPersister(engine, store, logger)
	tokens := identity.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	var idempotency middleware.IdempotencyStore
	if redisClient != nil {
		idempotency = internalRedis.NewIdempotencyStore(redisClient)
	}

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RiderHandler:  handler.NewRiderHandler(engine, tokens, persister),
		RideHandler:   handler.NewRideHandler(engine, persister),
		DriverHandler: handler.NewDriverHandler(engine),
		WalletHandler: handler.NewWalletHandler(engine, persister),
		Resolver:      tokens,
		Idempotency:   idempotency,
		Logger:        logger,
		NewRelicApp:   nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
