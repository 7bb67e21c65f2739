// Package graph mirrors saved worlds into Neo4j: entities become :Entity
// nodes, relations become typed relationships between them.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jwebster45206/world-editor/pkg/world"
)

var labelPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewClient(ctx context.Context, uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	return &Client{driver: driver, database: database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

func (c *Client) EnsureIndexes(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT entity_world_id IF NOT EXISTS
FOR (e:Entity) REQUIRE (e.world, e.id) IS UNIQUE`,
		`CREATE INDEX entity_world IF NOT EXISTS FOR (e:Entity) ON (e.world)`,
	}

	for _, stmt := range statements {
		if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		}); err != nil {
			return fmt.Errorf("ensuring indexes: %w", err)
		}
	}

	return nil
}

// SyncWorld replaces the mirrored graph of name with doc in one transaction.
func (c *Client) SyncWorld(ctx context.Context, name string, doc *world.Document) error {
	plan, err := Plan(name, doc)
	if err != nil {
		return err
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range plan {
			if _, err := tx.Run(ctx, st.Cypher, st.Params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("syncing world %s: %w", name, err)
	}
	return nil
}

// Statement is one Cypher statement with its parameters.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Plan returns the statements that mirror doc: clear the world, create its
// entities, then one batch per relation type. Relations whose type is not a
// valid label are rejected.
func Plan(name string, doc *world.Document) ([]Statement, error) {
	entities := make([]map[string]any, 0, doc.Entities.Len())
	for _, rec := range doc.Entities.All() {
		entities = append(entities, map[string]any{
			"id":    rec.Text("id"),
			"props": properties(rec),
		})
	}

	byType := map[string][]map[string]any{}
	for _, rec := range doc.Relations.All() {
		relType := rec.Text("type")
		if !labelPattern.MatchString(relType) {
			return nil, fmt.Errorf("invalid relationship type: %q", relType)
		}
		byType[relType] = append(byType[relType], map[string]any{
			"from":  rec.Text("ent1"),
			"to":    rec.Text("ent2"),
			"props": properties(rec),
		})
	}

	plan := []Statement{
		{
			Cypher: `MATCH (e:Entity {world: $world}) DETACH DELETE e`,
			Params: map[string]any{"world": name},
		},
		{
			Cypher: `
UNWIND $entities AS ent
CREATE (e:Entity {world: $world, id: ent.id})
SET e += ent.props
`,
			Params: map[string]any{"world": name, "entities": entities},
		},
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		plan = append(plan, Statement{
			Cypher: fmt.Sprintf(`
UNWIND $relations AS rel
MATCH (a:Entity {world: $world, id: rel.from})
MATCH (b:Entity {world: $world, id: rel.to})
CREATE (a)-[r:%s]->(b)
SET r += rel.props
`, t),
			Params: map[string]any{"world": name, "relations": byType[t]},
		})
	}
	return plan, nil
}

// properties flattens a record into values Neo4j can store. Nested values
// are kept as JSON text.
func properties(rec world.Record) map[string]any {
	props := make(map[string]any, rec.Len())
	for _, f := range rec.Fields() {
		switch v := f.Value.(type) {
		case nil:
		case string, float64, bool:
			props[f.Key] = v
		default:
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			props[f.Key] = string(data)
		}
	}
	return props
}
