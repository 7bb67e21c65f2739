package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Graph sync modes selectable with GRAPH_SYNC_MODE.
const (
	SyncInline = "inline"
	SyncQueue  = "queue"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// World store service
	DataDir        string
	StorageBackend string
	RedisURL       string
	CacheTTL       time.Duration
	DatabaseURL    string
	WriteTokenHash string

	// Optional Neo4j mirror of saved worlds
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
	GraphSyncMode string

	// Redis Pub/Sub world events and the sync worker
	EventsEnabled bool
	WorkerID      string

	// Console editor
	APIBaseURL     string
	WriteToken     string
	ExportDir      string
	RequestTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		DataDir:        getEnv("DATA_DIR", "./data"),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendFile)),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CacheTTL:       parseDuration(getEnv("CACHE_TTL", ""), time.Hour),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		WriteTokenHash: getEnv("WRITE_TOKEN_HASH", ""),

		Neo4jURI:      getEnv("NEO4J_URI", ""),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", "neo4j"),
		GraphSyncMode: strings.ToLower(getEnv("GRAPH_SYNC_MODE", SyncInline)),

		EventsEnabled: getEnv("EVENTS_ENABLED", "false") == "true",
		WorkerID:      getEnv("WORKER_ID", ""),

		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
		WriteToken:     getEnv("WRITE_TOKEN", ""),
		ExportDir:      getEnv("EXPORT_DIR", "."),
		RequestTimeout: parseDuration(getEnv("REQUEST_TIMEOUT", ""), 30*time.Second),
	}
}

// Validate checks the settings the world store service depends on.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendFile:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.GraphSyncMode {
	case "", SyncInline:
	case SyncQueue:
		if c.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required for GRAPH_SYNC_MODE=queue")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for GRAPH_SYNC_MODE=queue")
		}
	default:
		return fmt.Errorf("unknown GRAPH_SYNC_MODE %q", c.GraphSyncMode)
	}
	if c.EventsEnabled && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when EVENTS_ENABLED=true")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
