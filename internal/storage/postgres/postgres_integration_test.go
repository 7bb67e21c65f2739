//go:build integration

package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/jwebster45206/world-editor/internal/storage"
	"github.com/jwebster45206/world-editor/pkg/world"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := New(ctx, dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE worlds`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadWorld(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	doc := world.NewDocument("demo", "desc")
	doc.Relations.Append(world.NewRecord(
		world.Field{Key: "id", Value: 1.0},
		world.Field{Key: "type", Value: "EDGE"},
	))
	if err := s.SaveWorld(ctx, "demo", doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc.Description = "updated"
	if err := s.SaveWorld(ctx, "demo.json", doc); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := s.LoadWorld(ctx, "demo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Description != "updated" {
		t.Fatalf("expected updated description, got %q", got.Description)
	}
	if got.Relations.Len() != 1 {
		t.Fatalf("expected 1 relation, got %d", got.Relations.Len())
	}

	names, err := s.ListWorlds(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 || names[0] != "demo" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestLoadWorld_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.LoadWorld(context.Background(), "missing")
	if !errors.Is(err, storage.ErrWorldNotFound) {
		t.Fatalf("expected ErrWorldNotFound, got %v", err)
	}
}
