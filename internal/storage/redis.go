package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/world-editor/pkg/world"
)

const worldKeyPrefix = "world:"

// CachedStorage puts a Redis read-through cache in front of another Storage.
// The backend stays the source of truth; cache failures only cost a backend
// round trip.
type CachedStorage struct {
	backend Storage
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

// Ensure CachedStorage implements Storage interface
var _ Storage = (*CachedStorage)(nil)

// NewCachedStorage connects to the Redis server at redisURL
// (redis://host:port/db).
func NewCachedStorage(backend Storage, redisURL string, ttl time.Duration, logger *slog.Logger) (*CachedStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewCachedStorageWithClient(backend, redis.NewClient(opts), ttl, logger), nil
}

func NewCachedStorageWithClient(backend Storage, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStorage {
	return &CachedStorage{
		backend: backend,
		client:  client,
		ttl:     ttl,
		logger:  logger,
	}
}

func worldKey(name string) string {
	return worldKeyPrefix + name
}

// Health and lifecycle methods

func (c *CachedStorage) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return c.backend.Ping(ctx)
}

func (c *CachedStorage) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	c.logger.Info("Redis connection closed")
	return c.backend.Close()
}

// WaitForConnection waits for Redis to become available (used during startup)
func (c *CachedStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := c.client.Ping(ctx).Err(); err != nil {
			c.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		c.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// World operations

func (c *CachedStorage) ListWorlds(ctx context.Context) ([]string, error) {
	return c.backend.ListWorlds(ctx)
}

func (c *CachedStorage) LoadWorld(ctx context.Context, name string) (*world.Document, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, worldKey(name)).Bytes()
	switch {
	case err == nil:
		doc, decodeErr := world.Decode(data)
		if decodeErr == nil {
			c.logger.Debug("World cache hit", "world", name)
			return doc, nil
		}
		c.logger.Warn("Discarding unreadable cached world", "world", name, "error", decodeErr)
	case errors.Is(err, redis.Nil):
		c.logger.Debug("World cache miss", "world", name)
	default:
		c.logger.Warn("Redis GET failed", "key", worldKey(name), "error", err)
	}

	doc, err := c.backend.LoadWorld(ctx, name)
	if err != nil {
		return nil, err
	}
	c.store(ctx, name, doc)
	return doc, nil
}

func (c *CachedStorage) SaveWorld(ctx context.Context, name string, doc *world.Document) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	if err := c.backend.SaveWorld(ctx, name, doc); err != nil {
		// The cached copy may no longer match the backend.
		c.evict(ctx, name)
		return err
	}
	c.store(ctx, name, doc)
	return nil
}

func (c *CachedStorage) store(ctx context.Context, name string, doc *world.Document) {
	data, err := doc.Encode()
	if err != nil {
		c.logger.Warn("Failed to encode world for cache", "world", name, "error", err)
		return
	}
	if err := c.client.Set(ctx, worldKey(name), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Redis SET failed", "key", worldKey(name), "error", err)
	}
}

func (c *CachedStorage) evict(ctx context.Context, name string) {
	if err := c.client.Del(ctx, worldKey(name)).Err(); err != nil {
		c.logger.Warn("Redis DEL failed", "key", worldKey(name), "error", err)
	}
}
