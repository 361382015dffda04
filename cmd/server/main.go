package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xpboard/internal/cache"
	"github.com/xpboard/internal/chain"
	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/credential"
	"github.com/xpboard/internal/das"
	"github.com/xpboard/internal/domain"
	"github.com/xpboard/internal/handler"
	"github.com/xpboard/internal/kafka"
	"github.com/xpboard/internal/leaderboard"
	"github.com/xpboard/internal/postgres"
	"github.com/xpboard/internal/websocket"
	"github.com/xpboard/internal/worker"
)

// eventRouter fans indexer events out to the caches they invalidate.
type eventRouter struct {
	credentials *credential.Service
	board       *leaderboard.Service
}

func (r *eventRouter) HandleEvent(ctx context.Context, ev domain.InvalidationEvent) error {
	switch ev.Type {
	case domain.EventTypeXPTransfer:
		r.board.Invalidate(ctx)
		if ev.Wallet != "" {
			r.credentials.Invalidate(ctx, ev.Wallet)
		}
	case domain.EventTypeCredentialMint:
		if ev.Wallet != "" {
			r.credentials.Invalidate(ctx, ev.Wallet)
		}
	}
	return nil
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick the cache backend
	var store cache.Store
	if cfg.Cache.Backend == "redis" {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		redisStore, err := cache.NewRedisStore(&cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		store = redisStore
		logger.Info("connected to Redis")
	} else {
		store = cache.NewMemoryStore()
	}
	defer store.Close()

	// Optional profile/snapshot persistence
	var repo *postgres.Repository
	if cfg.Postgres.Enabled {
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err = postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		logger.Info("connected to PostgreSQL")

		if err := repo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		if snap, err := repo.LatestSnapshot(ctx); err != nil {
			logger.Warn("failed to load last ranking snapshot", "error", err)
		} else if snap != nil {
			logger.Info("last persisted ranking",
				"taken_at", snap.TakenAt,
				"wallets", len(snap.Entries),
			)
		}
	}

	// Upstream clients
	dasClient := das.NewClient(&cfg.DAS, logger)
	chainClient := chain.NewClient(&cfg.Chain, logger)
	if !cfg.DAS.Configured() {
		logger.Warn("indexing service not configured, lookups will return empty results")
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize services
	credentialService := credential.NewService(dasClient, &cfg.DAS, &cfg.Chain, store, &cfg.Cache, logger)

	var profiles leaderboard.ProfileSource
	if repo != nil {
		profiles = repo
	}
	boardService := leaderboard.NewService(dasClient, &cfg.DAS, &cfg.Chain, &cfg.Leaderboard, store, &cfg.Cache, profiles, logger)

	// Swap in the fixture ranking when the scan cannot run
	var board leaderboard.Provider = boardService
	if !boardService.Configured() && cfg.DAS.UseFixture {
		logger.Info("using fixture leaderboard provider")
		board = leaderboard.NewFixtureProvider()
	}

	// Initialize refresh worker
	var snapshots worker.SnapshotStore
	if repo != nil {
		snapshots = repo
	}
	refreshWorker := worker.NewRefreshWorker(board, wsHub, snapshots, &cfg.Refresh, logger)
	if cfg.Refresh.Enabled {
		if err := refreshWorker.Start(ctx); err != nil {
			logger.Error("failed to start refresh worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for indexer-driven cache invalidation
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		router := &eventRouter{credentials: credentialService, board: boardService}
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, router, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(board, credentialService, chainClient, wsHub, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		logger.Info("WebSocket endpoint available at /ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop refresh worker
	if cfg.Refresh.Enabled {
		if err := refreshWorker.Stop(); err != nil {
			logger.Error("failed to stop refresh worker", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
