// Package worker drains the graph sync queue into Neo4j.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/world-editor/internal/queue"
	"github.com/jwebster45206/world-editor/internal/storage"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 2 * time.Minute
)

// JobQueue is the part of the sync queue the worker consumes.
type JobQueue interface {
	BlockingDequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Requeue(ctx context.Context, job *queue.Job) error
}

// Publisher reports job outcomes. Publishing failures never fail a job.
type Publisher interface {
	PublishSyncCompleted(ctx context.Context, world, jobID string, durationMS int64) error
	PublishSyncFailed(ctx context.Context, world, jobID, errorMsg string) error
}

// Worker processes graph sync jobs one at a time. A per-world lock in Redis
// keeps two workers from syncing the same world concurrently.
type Worker struct {
	id          string
	queue       JobQueue
	store       storage.Storage
	syncer      storage.GraphSyncer
	publisher   Publisher
	redisClient *redis.Client
	log         *slog.Logger
	pollTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a worker. publisher may be nil.
func New(q JobQueue, store storage.Storage, syncer storage.GraphSyncer, publisher Publisher, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       q,
		store:       store,
		syncer:      syncer,
		publisher:   publisher,
		redisClient: redisClient,
		log:         log,
		pollTimeout: workerTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start processes jobs until Stop is called.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if _, err := w.ProcessNext(); err != nil {
				w.log.Error("Error processing job", "error", err, "worker_id", w.id)
				// Continue processing even on error
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// ProcessNext waits for one job and runs it. It reports whether a job was
// taken off the queue.
func (w *Worker) ProcessNext() (bool, error) {
	ctx, cancel := context.WithTimeout(w.ctx, w.pollTimeout+time.Second)
	defer cancel()

	job, err := w.queue.BlockingDequeue(ctx, w.pollTimeout)
	if err != nil {
		return false, fmt.Errorf("failed to dequeue job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	w.log.Info("Received job from queue",
		"worker_id", w.id,
		"job_id", job.ID,
		"world", job.World,
	)

	locked, err := w.acquireWorldLock(job.World)
	if err != nil {
		return true, fmt.Errorf("failed to acquire world lock: %w", err)
	}
	if !locked {
		// Another worker is syncing this world; try again later.
		w.log.Info("World already locked, re-queueing job",
			"worker_id", w.id,
			"job_id", job.ID,
			"world", job.World,
		)
		if err := w.queue.Requeue(w.ctx, job); err != nil {
			return true, fmt.Errorf("failed to re-queue job: %w", err)
		}
		return true, nil
	}
	defer w.releaseWorldLock(job.World)

	return true, w.processJob(job)
}

func lockKey(world string) string {
	return "world-lock:" + world
}

// acquireWorldLock returns true if the lock was acquired.
func (w *Worker) acquireWorldLock(world string) (bool, error) {
	return w.redisClient.SetNX(w.ctx, lockKey(world), w.id, lockTTL).Result()
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// releaseWorldLock deletes the lock only if this worker still owns it.
func (w *Worker) releaseWorldLock(world string) {
	if err := releaseScript.Run(w.ctx, w.redisClient, []string{lockKey(world)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release world lock", "error", err, "world", world)
	}
}

func (w *Worker) processJob(job *queue.Job) error {
	start := time.Now()

	doc, err := w.store.LoadWorld(w.ctx, job.World)
	if err != nil {
		if errors.Is(err, storage.ErrWorldNotFound) {
			// Nothing left to mirror.
			w.log.Warn("World vanished before sync", "world", job.World, "job_id", job.ID)
		}
		w.fail(job, err)
		return fmt.Errorf("failed to load world %s: %w", job.World, err)
	}

	if err := w.syncer.SyncWorld(w.ctx, job.World, doc); err != nil {
		w.fail(job, err)
		return fmt.Errorf("failed to sync world %s: %w", job.World, err)
	}

	elapsed := time.Since(start).Milliseconds()
	w.log.Info("World synced to graph",
		"worker_id", w.id,
		"job_id", job.ID,
		"world", job.World,
		"entities", doc.Entities.Len(),
		"relations", doc.Relations.Len(),
		"duration_ms", elapsed,
	)
	if w.publisher != nil {
		if err := w.publisher.PublishSyncCompleted(w.ctx, job.World, job.ID, elapsed); err != nil {
			w.log.Error("Failed to publish completion event", "error", err)
		}
	}
	return nil
}

func (w *Worker) fail(job *queue.Job, cause error) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishSyncFailed(w.ctx, job.World, job.ID, cause.Error()); err != nil {
		w.log.Error("Failed to publish failure event", "error", err)
	}
}
