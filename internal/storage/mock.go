package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jwebster45206/world-editor/pkg/world"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	worlds    map[string]*world.Document
	pingError error
	saveError error
	loads     int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		worlds: make(map[string]*world.Document),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every SaveWorld call fail with err.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// AddWorld stores a copy of doc under name.
func (m *MockStorage) AddWorld(name string, doc *world.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worlds[name] = doc.Clone()
}

// Loads counts LoadWorld calls that reached the mock.
func (m *MockStorage) Loads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loads
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) ListWorlds(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.worlds))
	for name := range m.worlds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockStorage) LoadWorld(ctx context.Context, name string) (*world.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	doc, ok := m.worlds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, name)
	}
	return doc.Clone(), nil
}

func (m *MockStorage) SaveWorld(ctx context.Context, name string, doc *world.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.worlds[name] = doc.Clone()
	return nil
}
