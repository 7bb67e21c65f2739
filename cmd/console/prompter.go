package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"

	"github.com/jwebster45206/world-editor/pkg/session"
)

const toastDuration = 3 * time.Second

// toast is the most recent notification shown in the status line.
type toast struct {
	seq     int
	message string
	isError bool
}

// consolePrompter answers the controller's confirmation questions. The UI
// asks the user in a modal first and arms the answer before calling the
// controller, so the answer is consumed by the next question.
type consolePrompter struct {
	armed bool
	toast toast
}

var _ session.Prompter = (*consolePrompter)(nil)

func (p *consolePrompter) approve() {
	p.armed = true
}

func (p *consolePrompter) take() bool {
	ok := p.armed
	p.armed = false
	return ok
}

func (p *consolePrompter) ConfirmDiscard() bool {
	return p.take()
}

func (p *consolePrompter) ConfirmDelete() bool {
	return p.take()
}

func (p *consolePrompter) Notify(message string, isError bool) {
	p.toast = toast{seq: p.toast.seq + 1, message: message, isError: isError}
}

// fileExporter writes exported worlds to a directory and copies them to the
// system clipboard when one is available.
type fileExporter struct {
	dir    string
	copy   func(string) error
	logger *slog.Logger
}

var _ session.Exporter = (*fileExporter)(nil)

func newFileExporter(dir string, logger *slog.Logger) *fileExporter {
	return &fileExporter{dir: dir, copy: clipboard.WriteAll, logger: logger}
}

func (e *fileExporter) Export(filename string, data []byte) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(e.dir, filename)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if e.copy != nil {
		if err := e.copy(string(data)); err != nil {
			e.logger.Warn("Clipboard unavailable, export written to file only", "error", err)
		}
	}
	e.logger.Info("World exported", "path", path, "bytes", len(data))
	return nil
}
