package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/world-editor/pkg/world"
)

func planDoc() *world.Document {
	doc := world.NewDocument("demo", "")
	doc.Entities.Append(world.NewRecord(
		world.Field{Key: "id", Value: "cave"},
		world.Field{Key: "type", Value: "ENVI"},
		world.Field{Key: "extra", Value: map[string]any{"x": 1.0}},
	))
	doc.Entities.Append(world.NewRecord(world.Field{Key: "id", Value: "hero"}))
	doc.Relations.Append(world.NewRecord(
		world.Field{Key: "id", Value: 1.0},
		world.Field{Key: "type", Value: "EDGE"},
		world.Field{Key: "ent1", Value: "cave"},
		world.Field{Key: "ent2", Value: "hero"},
		world.Field{Key: "one_way", Value: true},
	))
	doc.Relations.Append(world.NewRecord(
		world.Field{Key: "id", Value: 2.0},
		world.Field{Key: "type", Value: "CONSUME"},
		world.Field{Key: "ent1", Value: "hero"},
		world.Field{Key: "ent2", Value: "cave"},
	))
	return doc
}

func TestPlan(t *testing.T) {
	plan, err := Plan("demo", planDoc())
	require.NoError(t, err)
	require.Len(t, plan, 4)

	assert.Contains(t, plan[0].Cypher, "DETACH DELETE")
	assert.Equal(t, "demo", plan[0].Params["world"])

	entities := plan[1].Params["entities"].([]map[string]any)
	require.Len(t, entities, 2)
	assert.Equal(t, "cave", entities[0]["id"])
	props := entities[0]["props"].(map[string]any)
	assert.Equal(t, "ENVI", props["type"])
	assert.Equal(t, `{"x":1}`, props["extra"])

	// Relation batches are ordered by type.
	assert.True(t, strings.Contains(plan[2].Cypher, "[r:CONSUME]"))
	assert.True(t, strings.Contains(plan[3].Cypher, "[r:EDGE]"))
	edges := plan[3].Params["relations"].([]map[string]any)
	require.Len(t, edges, 1)
	assert.Equal(t, "cave", edges[0]["from"])
	assert.Equal(t, true, edges[0]["props"].(map[string]any)["one_way"])
}

func TestPlan_RejectsBadRelationType(t *testing.T) {
	doc := world.NewDocument("demo", "")
	doc.Relations.Append(world.NewRecord(world.Field{Key: "type", Value: "EDGE]->() DETACH DELETE (n"}))
	_, err := Plan("demo", doc)
	assert.Error(t, err)
}
