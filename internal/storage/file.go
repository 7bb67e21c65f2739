package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jwebster45206/world-editor/pkg/world"
)

// FileStorage keeps one JSON file per world under <dataDir>/worlds.
type FileStorage struct {
	dir    string
	logger *slog.Logger
}

// Ensure FileStorage implements Storage interface
var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates the worlds directory if needed.
func NewFileStorage(dataDir string, logger *slog.Logger) (*FileStorage, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	dir := filepath.Join(dataDir, "worlds")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create worlds directory: %w", err)
	}
	return &FileStorage{dir: dir, logger: logger}, nil
}

func (f *FileStorage) Ping(ctx context.Context) error {
	if _, err := os.Stat(f.dir); err != nil {
		return fmt.Errorf("worlds directory unavailable: %w", err)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

func (f *FileStorage) path(name string) (string, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.dir, name+".json"), nil
}

func (f *FileStorage) ListWorlds(ctx context.Context) ([]string, error) {
	names := []string{}
	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != f.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".json" {
			names = append(names, strings.TrimSuffix(d.Name(), ".json"))
		}
		return nil
	})
	if err != nil {
		f.logger.Error("Failed to walk worlds directory", "error", err)
		return nil, fmt.Errorf("failed to list worlds: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FileStorage) LoadWorld(ctx context.Context, name string) (*world.Document, error) {
	path, err := f.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, name)
		}
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	return world.Decode(data)
}

// SaveWorld writes through a temporary file so readers never see a partial
// document.
func (f *FileStorage) SaveWorld(ctx context.Context, name string, doc *world.Document) error {
	path, err := f.path(name)
	if err != nil {
		return err
	}
	data, err := doc.Encode()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".world-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write world file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write world file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write world file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write world file: %w", err)
	}

	f.logger.Debug("World written", "world", name, "path", path, "bytes", len(data))
	return nil
}
