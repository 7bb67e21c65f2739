package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/world-editor/internal/config"
	"github.com/jwebster45206/world-editor/internal/logger"
	"github.com/jwebster45206/world-editor/internal/mcp"
	"github.com/jwebster45206/world-editor/internal/storage"
	"github.com/jwebster45206/world-editor/internal/storage/postgres"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:           "world-mcp",
		Short:         "Serve stored worlds as read-only MCP tools over stdio",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dataDir)
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "world data directory (defaults to DATA_DIR)")
	return cmd
}

func runServe(ctx context.Context, dataDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	// stdout carries the MCP protocol.
	log := logger.SetupWriter(cfg, os.Stderr)

	var store storage.Storage
	if cfg.StorageBackend == config.BackendPostgres {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		store = pg
	} else {
		fs, err := storage.NewFileStorage(cfg.DataDir, log)
		if err != nil {
			return err
		}
		store = fs
	}
	defer func() {
		_ = store.Close()
	}()

	server := mcp.NewServer(store, version, log)
	return server.Run(ctx, &sdk.StdioTransport{})
}
