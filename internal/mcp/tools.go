package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/table"
)

type ListWorldsInput struct{}

type ListWorldsOutput struct {
	Worlds []string `json:"worlds"`
}

type GetSchemaInput struct{}

type ColumnOutput struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Optional bool     `json:"optional,omitempty"`
	Options  []string `json:"options,omitempty"`
}

type TabOutput struct {
	Tab     string         `json:"tab"`
	Columns []ColumnOutput `json:"columns"`
}

type SchemaOutput struct {
	Tabs []TabOutput `json:"tabs"`
}

type QueryTableInput struct {
	World      string `json:"world" jsonschema:"world name"`
	Tab        string `json:"tab,omitempty" jsonschema:"entities or a relation type such as EDGE"`
	Search     string `json:"search,omitempty" jsonschema:"case-insensitive text that some visible column must contain"`
	Sort       string `json:"sort,omitempty" jsonschema:"column key to sort by"`
	Descending bool   `json:"descending,omitempty" jsonschema:"sort descending"`
}

type QueryTableOutput struct {
	Tab     string              `json:"tab"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	Total   int                 `json:"total"`
	Message string              `json:"message,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_worlds",
		Description: "List the names of stored worlds",
	}, s.handleListWorlds)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_schema",
		Description: "Return the columns of the entity tab and of every relation type",
	}, s.handleGetSchema)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "query_table",
		Description: "Filter and sort the records of one tab of a world",
	}, s.handleQueryTable)
}

func (s *Server) handleListWorlds(ctx context.Context, req *sdk.CallToolRequest, input ListWorldsInput) (*sdk.CallToolResult, ListWorldsOutput, error) {
	names, err := s.store.ListWorlds(ctx)
	if err != nil {
		return nil, ListWorldsOutput{}, err
	}
	return nil, ListWorldsOutput{Worlds: names}, nil
}

func (s *Server) handleGetSchema(ctx context.Context, req *sdk.CallToolRequest, input GetSchemaInput) (*sdk.CallToolResult, SchemaOutput, error) {
	var out SchemaOutput
	for _, tab := range s.registry.Tabs() {
		cols, err := s.registry.Columns(tab)
		if err != nil {
			return nil, SchemaOutput{}, err
		}
		t := TabOutput{Tab: string(tab), Columns: make([]ColumnOutput, 0, len(cols))}
		for _, c := range cols {
			t.Columns = append(t.Columns, ColumnOutput{
				Key:      c.Key,
				Label:    c.Label,
				Kind:     c.Kind.String(),
				Optional: c.Optional,
				Options:  c.Options,
			})
		}
		out.Tabs = append(out.Tabs, t)
	}
	return nil, out, nil
}

func (s *Server) handleQueryTable(ctx context.Context, req *sdk.CallToolRequest, input QueryTableInput) (*sdk.CallToolResult, QueryTableOutput, error) {
	if input.World == "" {
		return nil, QueryTableOutput{}, fmt.Errorf("world is required")
	}
	tab := schema.Tab(input.Tab)
	if tab == "" {
		tab = schema.EntitiesTab
	}

	doc, err := s.store.LoadWorld(ctx, input.World)
	if err != nil {
		return nil, QueryTableOutput{}, err
	}
	view, err := s.tables.Render(doc, tab, input.Search, table.Sort{Column: input.Sort, Descending: input.Descending})
	if err != nil {
		return nil, QueryTableOutput{}, err
	}
	s.logger.Debug("Table queried", "world", input.World, "tab", tab, "rows", len(view.Rows))
	return nil, queryOutputFromView(view), nil
}

func queryOutputFromView(view *table.View) QueryTableOutput {
	out := QueryTableOutput{
		Tab:     string(view.Tab),
		Columns: make([]string, 0, len(view.Columns)),
		Rows:    make([]map[string]string, 0, len(view.Rows)),
		Total:   view.Total,
		Message: view.Empty.Message(),
	}
	for _, c := range view.Columns {
		out.Columns = append(out.Columns, c.Key)
	}
	for _, r := range view.Rows {
		row := make(map[string]string, len(r.Cells))
		for _, cell := range r.Cells {
			row[cell.Key] = cell.Text
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
