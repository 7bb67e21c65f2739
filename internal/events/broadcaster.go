// Package events publishes world store activity over Redis Pub/Sub so that
// open editors and tools can follow saves and graph syncs as they happen.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Channel is the Pub/Sub channel every world event is published on.
const Channel = "world-events"

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeWorldSaved      EventType = "world.saved"
	EventTypeSyncQueued      EventType = "graph.sync_queued"
	EventTypeSyncCompleted   EventType = "graph.sync_completed"
	EventTypeSyncFailed      EventType = "graph.sync_failed"
	EventTypeStreamConnected EventType = "connected"
)

// Event is the payload published for every world event.
type Event struct {
	Type  EventType      `json:"type"`
	World string         `json:"world"`
	JobID string         `json:"job_id,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishWorldSaved announces a stored world and its record counts.
func (b *Broadcaster) PublishWorldSaved(ctx context.Context, world string, entities, relations int) error {
	return b.publish(ctx, Event{
		Type:  EventTypeWorldSaved,
		World: world,
		Data: map[string]any{
			"entities":  entities,
			"relations": relations,
		},
	})
}

func (b *Broadcaster) PublishSyncQueued(ctx context.Context, world, jobID string) error {
	return b.publish(ctx, Event{
		Type:  EventTypeSyncQueued,
		World: world,
		JobID: jobID,
		Data:  map[string]any{"status": "queued"},
	})
}

func (b *Broadcaster) PublishSyncCompleted(ctx context.Context, world, jobID string, durationMS int64) error {
	return b.publish(ctx, Event{
		Type:  EventTypeSyncCompleted,
		World: world,
		JobID: jobID,
		Data: map[string]any{
			"status":      "completed",
			"duration_ms": durationMS,
		},
	})
}

func (b *Broadcaster) PublishSyncFailed(ctx context.Context, world, jobID, errorMsg string) error {
	return b.publish(ctx, Event{
		Type:  EventTypeSyncFailed,
		World: world,
		JobID: jobID,
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

// Subscribe opens a subscription to the world events channel. The caller
// closes it.
func (b *Broadcaster) Subscribe(ctx context.Context) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel)
}

func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, Channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", Channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", Channel,
		"event_type", event.Type,
		"world", event.World,
		"job_id", event.JobID,
	)
	return nil
}
