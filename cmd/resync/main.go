package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/world-editor/internal/config"
	"github.com/jwebster45206/world-editor/internal/events"
	"github.com/jwebster45206/world-editor/internal/queue"
	"github.com/jwebster45206/world-editor/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "resync <world>...",
	Short: "Queue graph sync jobs for stored worlds",
	Long: `Queues one graph sync job per named world on the Redis list the worker
drains. Useful after the graph was wiped or the worker was down.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		redisURL, _ := cmd.Flags().GetString("redis-url")
		notify, _ := cmd.Flags().GetBool("notify")
		return enqueue(cmd.Context(), cmd.OutOrStdout(), redisURL, notify, args)
	},
}

func init() {
	rootCmd.Flags().String("redis-url", config.Load().RedisURL, "Redis URL holding the sync queue")
	rootCmd.Flags().Bool("notify", false, "publish graph.sync_queued events")
}

func enqueue(ctx context.Context, out io.Writer, redisURL string, notify bool, names []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := queue.NewClient(ctx, redisURL, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	var notifier queue.QueuedNotifier
	if notify {
		notifier = events.NewBroadcaster(client.Redis(), log)
	}
	q := queue.NewSyncQueue(client, notifier)

	for _, raw := range names {
		name, err := storage.NormalizeName(raw)
		if err != nil {
			return err
		}
		job, err := q.Enqueue(ctx, name)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Queued %s (job %s)\n", name, job.ID)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Queue depth: %d\n", depth)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Resync failed: %v\n", err)
		os.Exit(1)
	}
}
