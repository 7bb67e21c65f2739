package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/world-editor/internal/storage"
	"github.com/jwebster45206/world-editor/pkg/world"
)

// SyncKey is the Redis list holding pending graph sync jobs.
const SyncKey = "graph-sync-jobs"

// Job asks the worker to mirror the stored copy of World into the graph.
type Job struct {
	ID         string    `json:"id"`
	World      string    `json:"world"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// QueuedNotifier is told about every job that was queued.
type QueuedNotifier interface {
	PublishSyncQueued(ctx context.Context, world, jobID string) error
}

// SyncQueue is a FIFO of graph sync jobs. It stands in for the graph client
// behind MirroredStorage, so saves return without waiting on Neo4j.
type SyncQueue struct {
	client   *Client
	notifier QueuedNotifier
}

// Ensure SyncQueue implements GraphSyncer interface
var _ storage.GraphSyncer = (*SyncQueue)(nil)

func NewSyncQueue(client *Client, notifier QueuedNotifier) *SyncQueue {
	return &SyncQueue{client: client, notifier: notifier}
}

// SyncWorld queues a job for name. The worker reloads the document from
// storage, so doc itself is not queued.
func (q *SyncQueue) SyncWorld(ctx context.Context, name string, _ *world.Document) error {
	_, err := q.Enqueue(ctx, name)
	return err
}

// Enqueue adds a job for world to the tail of the queue.
func (q *SyncQueue) Enqueue(ctx context.Context, worldName string) (*Job, error) {
	job := &Job{
		ID:         uuid.New().String(),
		World:      worldName,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := q.push(ctx, job); err != nil {
		return nil, err
	}

	q.client.logger.Debug("Graph sync job queued", "world", worldName, "job_id", job.ID)
	if q.notifier != nil {
		if err := q.notifier.PublishSyncQueued(ctx, worldName, job.ID); err != nil {
			q.client.logger.Warn("Failed to publish queued event", "error", err, "job_id", job.ID)
		}
	}
	return job, nil
}

// Requeue puts job back at the tail without announcing it again.
func (q *SyncQueue) Requeue(ctx context.Context, job *Job) error {
	return q.push(ctx, job)
}

func (q *SyncQueue) push(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal sync job: %w", err)
	}
	if err := q.client.rdb.LPush(ctx, SyncKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue sync job: %w", err)
	}
	return nil
}

// BlockingDequeue waits up to timeout for the oldest job. It returns nil
// without error when the queue stayed empty or ctx ended.
func (q *SyncQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.rdb.BRPop(ctx, timeout, SyncKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue sync job: %w", err)
	}
	// BRPOP replies with the key followed by the value.
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		q.client.logger.Error("Dropping malformed sync job", "error", err, "payload", res[1])
		return nil, fmt.Errorf("failed to decode sync job: %w", err)
	}
	return &job, nil
}

// Depth returns the number of jobs waiting.
func (q *SyncQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, SyncKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}
