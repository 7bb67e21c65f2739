package queue

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/jwebster45206/world-editor/pkg/world"
)

type recordingNotifier struct {
	queued []string
	err    error
}

func (n *recordingNotifier) PublishSyncQueued(_ context.Context, world, jobID string) error {
	n.queued = append(n.queued, world+":"+jobID)
	return n.err
}

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	client, err := NewClient(context.Background(), "redis://"+mr.Addr(), logger)
	if err != nil {
		t.Fatalf("Failed to create queue client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestSyncQueue_FIFO(t *testing.T) {
	client, _ := setupTestRedis(t)
	notifier := &recordingNotifier{}
	q := NewSyncQueue(client, notifier)
	ctx := context.Background()

	for _, name := range []string{"harbor", "keep", "marsh"} {
		if err := q.SyncWorld(ctx, name, world.NewDocument(name, "")); err != nil {
			t.Fatalf("Failed to enqueue %s: %v", name, err)
		}
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Failed to get depth: %v", err)
	}
	if depth != 3 {
		t.Errorf("Expected depth 3, got %d", depth)
	}
	if len(notifier.queued) != 3 {
		t.Errorf("Expected 3 queued notifications, got %d", len(notifier.queued))
	}

	for _, want := range []string{"harbor", "keep", "marsh"} {
		job, err := q.BlockingDequeue(ctx, time.Second)
		if err != nil {
			t.Fatalf("Failed to dequeue: %v", err)
		}
		if job == nil || job.World != want {
			t.Fatalf("Expected job for %s, got %+v", want, job)
		}
		if job.ID == "" || job.EnqueuedAt.IsZero() {
			t.Errorf("Job missing id or timestamp: %+v", job)
		}
	}
}

func TestSyncQueue_EmptyTimesOut(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewSyncQueue(client, nil)

	job, err := q.BlockingDequeue(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected no error on empty queue, got %v", err)
	}
	if job != nil {
		t.Fatalf("Expected no job, got %+v", job)
	}
}

func TestSyncQueue_RequeueSkipsNotification(t *testing.T) {
	client, _ := setupTestRedis(t)
	notifier := &recordingNotifier{}
	q := NewSyncQueue(client, notifier)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "harbor")
	if err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	got, err := q.BlockingDequeue(ctx, time.Second)
	if err != nil || got == nil {
		t.Fatalf("Failed to dequeue: %v", err)
	}
	if err := q.Requeue(ctx, got); err != nil {
		t.Fatalf("Failed to requeue: %v", err)
	}
	again, err := q.BlockingDequeue(ctx, time.Second)
	if err != nil || again == nil {
		t.Fatalf("Failed to dequeue requeued job: %v", err)
	}
	if again.ID != job.ID {
		t.Errorf("Expected requeued job %s, got %s", job.ID, again.ID)
	}
	if len(notifier.queued) != 1 {
		t.Errorf("Expected one notification, got %d", len(notifier.queued))
	}
}

func TestSyncQueue_NotifierFailureIsNotFatal(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewSyncQueue(client, &recordingNotifier{err: errors.New("pubsub down")})

	if _, err := q.Enqueue(context.Background(), "harbor"); err != nil {
		t.Fatalf("Expected enqueue to succeed, got %v", err)
	}
}

func TestSyncQueue_MalformedJob(t *testing.T) {
	client, mr := setupTestRedis(t)
	q := NewSyncQueue(client, nil)

	if _, err := mr.Lpush(SyncKey, "not json"); err != nil {
		t.Fatalf("Failed to seed queue: %v", err)
	}
	if _, err := q.BlockingDequeue(context.Background(), time.Second); err == nil {
		t.Fatal("Expected decode error")
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewClient(ctx, "redis://127.0.0.1:1", logger); err == nil {
		t.Fatal("Expected connection error")
	}
}
