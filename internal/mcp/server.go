// Package mcp exposes the world store as read-only MCP tools.
package mcp

import (
	"context"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/text/language"

	"github.com/jwebster45206/world-editor/internal/storage"
	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/table"
)

type Server struct {
	store    storage.Storage
	registry *schema.Registry
	tables   *table.Engine
	logger   *slog.Logger
	mcp      *sdk.Server
}

func NewServer(store storage.Storage, version string, logger *slog.Logger) *Server {
	registry := schema.Default()
	s := &Server{
		store:    store,
		registry: registry,
		tables:   table.NewEngine(registry, language.Und),
		logger:   logger,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "world-editor",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
