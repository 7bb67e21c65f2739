package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/world-editor/pkg/world"
)

var (
	// ErrWorldNotFound is returned when no world is stored under a name.
	ErrWorldNotFound = errors.New("world not found")
	// ErrInvalidName is returned for names that could escape the store.
	ErrInvalidName = errors.New("invalid world name")
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Storage persists named world documents.
type Storage interface {
	HealthChecker

	Close() error

	// ListWorlds returns the stored world names in sorted order.
	ListWorlds(ctx context.Context) ([]string, error)

	// LoadWorld returns ErrWorldNotFound when name is not stored.
	LoadWorld(ctx context.Context, name string) (*world.Document, error)

	// SaveWorld creates or replaces the world stored under name.
	SaveWorld(ctx context.Context, name string, doc *world.Document) error
}

// NormalizeName strips a trailing ".json" and rejects names that are empty
// or contain path elements.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(strings.TrimSuffix(name, ".json"))
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, `\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}
