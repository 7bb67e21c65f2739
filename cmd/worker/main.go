package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/world-editor/internal/config"
	"github.com/jwebster45206/world-editor/internal/events"
	"github.com/jwebster45206/world-editor/internal/graph"
	"github.com/jwebster45206/world-editor/internal/logger"
	"github.com/jwebster45206/world-editor/internal/queue"
	"github.com/jwebster45206/world-editor/internal/storage"
	"github.com/jwebster45206/world-editor/internal/storage/postgres"
	"github.com/jwebster45206/world-editor/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Neo4jURI == "" {
		log.Error("NEO4J_URI is required to run the graph sync worker")
		os.Exit(1)
	}

	log.Info("Starting graph sync worker",
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"neo4j_uri", cfg.Neo4jURI)

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()

	queueClient, err := queue.NewClient(startCtx, cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	syncQueue := queue.NewSyncQueue(queueClient, nil)
	log.Info("Queue service initialized successfully", "queue", queue.SyncKey)

	// The worker reads what the API stored, without the cache or mirror.
	var store storage.Storage
	if cfg.StorageBackend == config.BackendPostgres {
		store, err = postgres.New(startCtx, cfg.DatabaseURL, log)
	} else {
		store, err = storage.NewFileStorage(cfg.DataDir, log)
	}
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()
	if err := store.Ping(startCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage service initialized successfully")

	graphClient, err := graph.NewClient(startCtx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		log.Error("Failed to connect to Neo4j", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			log.Error("Error closing Neo4j driver", "error", err)
		}
	}()
	if err := graphClient.EnsureIndexes(startCtx); err != nil {
		log.Error("Failed to create graph indexes", "error", err)
		os.Exit(1)
	}
	log.Info("Neo4j connection established successfully")

	var publisher worker.Publisher
	if cfg.EventsEnabled {
		publisher = events.NewBroadcaster(queueClient.Redis(), log)
	}

	w := worker.New(syncQueue, store, graphClient, publisher, queueClient.Redis(), log, cfg.WorkerID)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
		}
	}()

	log.Info("Worker started, waiting for sync jobs...")

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give the worker time to finish the current job
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
