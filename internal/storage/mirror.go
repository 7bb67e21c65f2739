package storage

import (
	"context"
	"log/slog"

	"github.com/jwebster45206/world-editor/pkg/world"
)

// GraphSyncer receives every world that was saved successfully.
type GraphSyncer interface {
	SyncWorld(ctx context.Context, name string, doc *world.Document) error
}

// MirroredStorage copies saved worlds to a graph database. The wrapped
// Storage stays authoritative: a failed sync is logged, never returned.
type MirroredStorage struct {
	Storage
	syncer GraphSyncer
	logger *slog.Logger
}

// Ensure MirroredStorage implements Storage interface
var _ Storage = (*MirroredStorage)(nil)

func NewMirroredStorage(backend Storage, syncer GraphSyncer, logger *slog.Logger) *MirroredStorage {
	return &MirroredStorage{Storage: backend, syncer: syncer, logger: logger}
}

func (m *MirroredStorage) SaveWorld(ctx context.Context, name string, doc *world.Document) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	if err := m.Storage.SaveWorld(ctx, name, doc); err != nil {
		return err
	}
	if err := m.syncer.SyncWorld(ctx, name, doc); err != nil {
		m.logger.Warn("Failed to mirror world to graph", "world", name, "error", err)
	}
	return nil
}
