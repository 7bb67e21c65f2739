package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/world-editor/pkg/world"
)

type recordingSyncer struct {
	names []string
	err   error
}

func (s *recordingSyncer) SyncWorld(ctx context.Context, name string, doc *world.Document) error {
	s.names = append(s.names, name)
	return s.err
}

func TestMirroredStorage_SyncsAfterSave(t *testing.T) {
	backend := NewMockStorage()
	syncer := &recordingSyncer{}
	m := NewMirroredStorage(backend, syncer, testLogger())
	ctx := context.Background()

	require.NoError(t, m.SaveWorld(ctx, "demo.json", sampleWorld()))
	assert.Equal(t, []string{"demo"}, syncer.names)

	names, err := m.ListWorlds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, names)
}

func TestMirroredStorage_SyncFailureIsNotFatal(t *testing.T) {
	syncer := &recordingSyncer{err: errors.New("neo4j down")}
	m := NewMirroredStorage(NewMockStorage(), syncer, testLogger())
	assert.NoError(t, m.SaveWorld(context.Background(), "demo", sampleWorld()))
}

func TestMirroredStorage_FailedSaveSkipsSync(t *testing.T) {
	backend := NewMockStorage()
	backend.SetSaveError(errors.New("disk full"))
	syncer := &recordingSyncer{}
	m := NewMirroredStorage(backend, syncer, testLogger())

	assert.Error(t, m.SaveWorld(context.Background(), "demo", sampleWorld()))
	assert.Empty(t, syncer.names)
}
