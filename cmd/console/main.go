package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/world-editor/internal/config"
	"github.com/jwebster45206/world-editor/internal/logger"
	"github.com/jwebster45206/world-editor/pkg/session"
	"github.com/jwebster45206/world-editor/pkg/worldstore"
)

func main() {
	cfg := config.Load()

	// The terminal belongs to the UI, so logs go to a file.
	logPath := filepath.Join(os.TempDir(), "world-console.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", logPath, err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close()
	}()
	log := logger.SetupWriter(cfg, logFile)

	client := worldstore.NewClient(cfg.APIBaseURL, cfg.WriteToken, cfg.RequestTimeout, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	err = client.Ping(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to the world store at %s: %v\nTry: docker-compose up -d\n", cfg.APIBaseURL, err)
		os.Exit(1)
	}

	prompter := &consolePrompter{}
	exporter := newFileExporter(cfg.ExportDir, log)
	ctrl := session.New(client, prompter, exporter, log)

	p := tea.NewProgram(NewConsoleUI(ctrl, client, prompter, cfg.RequestTimeout, log), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
