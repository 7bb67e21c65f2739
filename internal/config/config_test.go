package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "STORAGE_BACKEND", "CACHE_TTL", "API_BASE_URL", "REQUEST_TIMEOUT", "GRAPH_SYNC_MODE", "EVENTS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, SyncInline, cfg.GraphSyncMode)
	assert.False(t, cfg.EventsEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/worlds")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("API_BASE_URL", "http://editor:9000/")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")
	t.Setenv("GRAPH_SYNC_MODE", "Queue")
	t.Setenv("NEO4J_URI", "bolt://graph:7687")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("WORKER_ID", "sync-1")

	cfg := Load()
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, BackendPostgres, cfg.StorageBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "http://editor:9000", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, SyncQueue, cfg.GraphSyncMode)
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, "sync-1", cfg.WorkerID)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"file", Config{StorageBackend: BackendFile}, false},
		{"redis", Config{StorageBackend: BackendRedis, RedisURL: "redis://x"}, false},
		{"redis without url", Config{StorageBackend: BackendRedis}, true},
		{"postgres without dsn", Config{StorageBackend: BackendPostgres}, true},
		{"unknown backend", Config{StorageBackend: "s3"}, true},
		{"queue sync", Config{StorageBackend: BackendFile, GraphSyncMode: SyncQueue, Neo4jURI: "bolt://g", RedisURL: "redis://x"}, false},
		{"queue sync without neo4j", Config{StorageBackend: BackendFile, GraphSyncMode: SyncQueue, RedisURL: "redis://x"}, true},
		{"unknown sync mode", Config{StorageBackend: BackendFile, GraphSyncMode: "kafka"}, true},
		{"events without redis", Config{StorageBackend: BackendFile, EventsEnabled: true}, true},
		{"negative ttl", Config{StorageBackend: BackendFile, CacheTTL: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
