package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/world-editor/internal/config"
	"github.com/jwebster45206/world-editor/internal/events"
	"github.com/jwebster45206/world-editor/internal/graph"
	"github.com/jwebster45206/world-editor/internal/handlers"
	"github.com/jwebster45206/world-editor/internal/logger"
	"github.com/jwebster45206/world-editor/internal/middleware"
	"github.com/jwebster45206/world-editor/internal/queue"
	"github.com/jwebster45206/world-editor/internal/storage"
	"github.com/jwebster45206/world-editor/internal/storage/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("Starting world store API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend)

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()

	var err error

	// Redis carries world events and queued graph syncs.
	var redisClient *queue.Client
	var broadcaster *events.Broadcaster
	if cfg.EventsEnabled || cfg.GraphSyncMode == config.SyncQueue {
		redisClient, err = queue.NewClient(startCtx, cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", "error", err)
			}
		}()
		if cfg.EventsEnabled {
			broadcaster = events.NewBroadcaster(redisClient.Redis(), log)
		}
	}

	store, closeGraph, err := openStorage(startCtx, cfg, redisClient, broadcaster, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	if err := store.Ping(startCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	if redisClient != nil {
		healthHandler.WithComponent("redis", redisClient)
	}
	mux.Handle("/health", healthHandler)

	worldHandler := handlers.NewWorldHandler(store, log)
	if broadcaster != nil {
		worldHandler.WithEvents(broadcaster)
		mux.Handle("/v1/events", handlers.NewEventsHandler(broadcaster, log))
		log.Info("Publishing world events", "channel", events.Channel)
	}
	mux.Handle("/v1/worlds", worldHandler)
	mux.Handle("/v1/worlds/", worldHandler)

	handler := middleware.Chain(mux,
		middleware.RequestLogger(log),
		middleware.RequireToken(cfg.WriteTokenHash, log),
	)
	if cfg.WriteTokenHash == "" {
		log.Warn("WRITE_TOKEN_HASH not set, writes are not authenticated")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	closeGraph(shutdownCtx)

	log.Info("Server exited")
}

// openStorage builds the configured backend, wrapped in the Redis cache and
// the Neo4j mirror when those are enabled. In queue mode saves only enqueue a
// sync job for cmd/worker. The returned func closes the graph client.
func openStorage(ctx context.Context, cfg *config.Config, redisClient *queue.Client, broadcaster *events.Broadcaster, log *slog.Logger) (storage.Storage, func(context.Context), error) {
	noop := func(context.Context) {}

	var store storage.Storage
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pg, err := postgres.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, noop, err
		}
		store = pg
	default:
		fs, err := storage.NewFileStorage(cfg.DataDir, log)
		if err != nil {
			return nil, noop, err
		}
		store = fs
	}

	if cfg.StorageBackend == config.BackendRedis {
		cached, err := storage.NewCachedStorage(store, cfg.RedisURL, cfg.CacheTTL, log)
		if err != nil {
			return nil, noop, err
		}
		if err := cached.WaitForConnection(ctx); err != nil {
			return nil, noop, err
		}
		store = cached
	}

	if cfg.Neo4jURI == "" {
		return store, noop, nil
	}
	if cfg.GraphSyncMode == config.SyncQueue {
		var notifier queue.QueuedNotifier
		if broadcaster != nil {
			notifier = broadcaster
		}
		log.Info("Queueing graph syncs for the worker", "queue", queue.SyncKey)
		return storage.NewMirroredStorage(store, queue.NewSyncQueue(redisClient, notifier), log), noop, nil
	}
	client, err := graph.NewClient(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		return nil, noop, err
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, noop, err
	}
	log.Info("Mirroring saved worlds to Neo4j", "uri", cfg.Neo4jURI)
	closeGraph := func(ctx context.Context) {
		if err := client.Close(ctx); err != nil {
			log.Error("Error closing Neo4j driver", "error", err)
		}
	}
	return storage.NewMirroredStorage(store, client, log), closeGraph, nil
}
