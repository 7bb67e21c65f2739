package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/world-editor/pkg/form"
	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/table"
	"github.com/jwebster45206/world-editor/pkg/world"
)

type memStore struct {
	worlds     map[string]*world.Document
	persistErr error
	persisted  map[string]*world.Document
}

func newMemStore() *memStore {
	hero := world.NewDocument("demo", "Demo world")
	hero.Entities.Append(world.NewRecord(
		world.Field{Key: "id", Value: "hero"},
		world.Field{Key: "name", Value: "Hero"},
		world.Field{Key: "type", Value: "CHAR"},
	))
	edges := world.NewDocument("edges", "")
	edges.Relations.Append(world.NewRecord(
		world.Field{Key: "id", Value: 1.0},
		world.Field{Key: "type", Value: "EDGE"},
		world.Field{Key: "ent1", Value: "a"},
		world.Field{Key: "ent2", Value: "b"},
		world.Field{Key: "number", Value: 5.0},
	))
	return &memStore{
		worlds:    map[string]*world.Document{"demo": hero, "edges": edges},
		persisted: map[string]*world.Document{},
	}
}

func (s *memStore) List(_ context.Context) ([]string, error) {
	var names []string
	for n := range s.worlds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memStore) Fetch(_ context.Context, name string) (*world.Document, error) {
	doc, ok := s.worlds[name]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", name, ErrNotFound)
	}
	return doc.Clone(), nil
}

func (s *memStore) Persist(_ context.Context, name string, doc *world.Document) error {
	if s.persistErr != nil {
		return s.persistErr
	}
	s.persisted[name] = doc
	return nil
}

type notice struct {
	message string
	isError bool
}

type fakePrompter struct {
	discard  bool
	delete   bool
	notices  []notice
	discards int
}

func (p *fakePrompter) ConfirmDiscard() bool {
	p.discards++
	return p.discard
}

func (p *fakePrompter) ConfirmDelete() bool { return p.delete }

func (p *fakePrompter) Notify(message string, isError bool) {
	p.notices = append(p.notices, notice{message, isError})
}

func (p *fakePrompter) last() notice {
	if len(p.notices) == 0 {
		return notice{}
	}
	return p.notices[len(p.notices)-1]
}

type fakeExporter struct {
	filename string
	data     []byte
}

func (e *fakeExporter) Export(filename string, data []byte) error {
	e.filename = filename
	e.data = data
	return nil
}

func setup(t *testing.T, name string) (*Controller, *memStore, *fakePrompter, *fakeExporter) {
	t.Helper()
	store := newMemStore()
	prompter := &fakePrompter{}
	exporter := &fakeExporter{}
	c := New(store, prompter, exporter, nil)
	if name != "" {
		require.NoError(t, c.Load(context.Background(), name))
	}
	return c, store, prompter, exporter
}

func TestLoad_ResetsView(t *testing.T) {
	c, _, prompter, _ := setup(t, "demo")
	require.NoError(t, c.SwitchTab("EDGE"))
	c.SetSearch("x")
	c.ToggleSort("id")

	require.NoError(t, c.Load(context.Background(), "edges"))
	st := c.State()
	assert.Equal(t, "edges", st.World)
	assert.Equal(t, schema.EntitiesTab, st.Tab)
	assert.Equal(t, "", st.Search)
	assert.False(t, st.Sort.Active())
	assert.False(t, st.Dirty)
	assert.Equal(t, notice{"Loaded world: edges", false}, prompter.last())
}

func TestLoad_NotFoundKeepsDocument(t *testing.T) {
	c, _, prompter, _ := setup(t, "demo")
	doc := c.Document()

	err := c.Load(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Same(t, doc, c.Document())
	assert.Equal(t, "demo", c.State().World)
	assert.True(t, prompter.last().isError)
}

func TestLoad_DirtyNeedsDiscard(t *testing.T) {
	c, _, prompter, _ := setup(t, "demo")
	require.NoError(t, c.SetWorldMeta("renamed", ""))

	require.NoError(t, c.Load(context.Background(), "edges"))
	assert.Equal(t, 1, prompter.discards)
	assert.Equal(t, "demo", c.State().World)
	assert.True(t, c.Dirty())

	prompter.discard = true
	require.NoError(t, c.Load(context.Background(), "edges"))
	assert.Equal(t, "edges", c.State().World)
	assert.False(t, c.Dirty())
}

func TestLoad_CleanSkipsPrompt(t *testing.T) {
	c, _, prompter, _ := setup(t, "demo")
	require.NoError(t, c.Load(context.Background(), "edges"))
	assert.Equal(t, 0, prompter.discards)
}

func TestFinishLoad_DropsStaleTicket(t *testing.T) {
	c, store, _, _ := setup(t, "")

	first, ok := c.BeginLoad("demo")
	require.True(t, ok)
	second, ok := c.BeginLoad("edges")
	require.True(t, ok)
	assert.NotEqual(t, first.Ticket, second.Ticket)

	assert.True(t, c.FinishLoad(second, store.worlds["edges"].Clone(), nil))
	assert.False(t, c.FinishLoad(first, store.worlds["demo"].Clone(), nil))
	assert.Equal(t, "edges", c.State().World)
}

func TestScenario_AddVillain(t *testing.T) {
	c, _, _, _ := setup(t, "demo")

	f, err := c.OpenNew()
	require.NoError(t, err)
	raw := f.Raw()
	raw["id"] = form.Input{Text: "villain"}
	raw["type"] = form.Input{Text: "UNIQUE"}
	raw["hp"] = form.Input{Text: ""}

	h, err := c.CommitForm(raw)
	require.NoError(t, err)
	assert.Nil(t, c.Form())
	assert.True(t, c.Dirty())

	doc := c.Document()
	require.Equal(t, 2, doc.Entities.Len())
	villain, ok := doc.Entities.Get(h)
	require.True(t, ok)
	assert.Equal(t, "villain", villain.Text("id"))
	assert.False(t, villain.Has("hp"))

	view, err := c.Table()
	require.NoError(t, err)
	assert.Len(t, view.Rows, 2)
}

func TestScenario_DuplicateEdge(t *testing.T) {
	c, _, _, _ := setup(t, "edges")
	require.NoError(t, c.SwitchTab("EDGE"))

	view, err := c.Table()
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)

	f, err := c.OpenRecord(view.Rows[0].Handle)
	require.NoError(t, err)
	dup, err := c.DuplicateForm(f.Raw())
	require.NoError(t, err)
	assert.Equal(t, "Relation #2 — EDGE", dup.Title)
	assert.Same(t, dup, c.Form())

	rec, ok := c.Document().Relations.Get(dup.Target)
	require.True(t, ok)
	assert.Equal(t, 2.0, mustNumber(t, rec, "id"))
	assert.Equal(t, "EDGE", rec.Text("type"))
	assert.Equal(t, "a", rec.Text("ent1"))
	assert.Equal(t, "b", rec.Text("ent2"))
	assert.Equal(t, 5.0, mustNumber(t, rec, "number"))
}

func mustNumber(t *testing.T, rec world.Record, key string) float64 {
	t.Helper()
	n, ok := rec.Number(key)
	require.True(t, ok, "%s is not a number", key)
	return n
}

func TestScenario_FailedSaveKeepsDirty(t *testing.T) {
	c, store, prompter, _ := setup(t, "demo")
	require.NoError(t, c.SetWorldMeta("demo", "changed"))
	store.persistErr = fmt.Errorf("disk full: %w", ErrStorage)

	err := c.Save(context.Background())
	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, c.Dirty())
	assert.True(t, prompter.last().isError)

	store.persistErr = nil
	require.NoError(t, c.Save(context.Background()))
	assert.False(t, c.Dirty())
	assert.Equal(t, "changed", store.persisted["demo"].Description)
}

func TestFinishSave_EditsDuringSaveStayDirty(t *testing.T) {
	c, _, _, _ := setup(t, "demo")
	require.NoError(t, c.SetWorldMeta("demo", "one"))

	req, err := c.BeginSave()
	require.NoError(t, err)
	require.NoError(t, c.SetWorldMeta("demo", "two"))

	assert.True(t, c.FinishSave(req, nil))
	assert.True(t, c.Dirty())
	assert.Equal(t, "one", req.Doc.Description)
}

func TestFinishSave_DropsStaleTicket(t *testing.T) {
	c, _, _, _ := setup(t, "demo")
	require.NoError(t, c.SetWorldMeta("demo", "x"))

	first, err := c.BeginSave()
	require.NoError(t, err)
	second, err := c.BeginSave()
	require.NoError(t, err)

	assert.False(t, c.FinishSave(first, nil))
	assert.True(t, c.Dirty())
	assert.True(t, c.FinishSave(second, nil))
	assert.False(t, c.Dirty())
}

func TestSave_NoWorld(t *testing.T) {
	c, _, _, _ := setup(t, "")
	assert.ErrorIs(t, c.Save(context.Background()), ErrNoWorld)
	assert.ErrorIs(t, c.Export(), ErrNoWorld)
	_, err := c.Table()
	assert.ErrorIs(t, err, ErrNoWorld)
}

func TestExport(t *testing.T) {
	c, _, _, exporter := setup(t, "demo")
	require.NoError(t, c.Export())
	assert.Equal(t, "demo.json", exporter.filename)
	assert.Contains(t, string(exporter.data), "\n  \"name\": \"demo\"")
	assert.False(t, c.Dirty())
}

func TestExport_EncodeFailureIsReported(t *testing.T) {
	c, _, prompter, exporter := setup(t, "demo")
	c.Document().Entities.Append(world.NewRecord(
		world.Field{Key: "id", Value: "broken"},
		world.Field{Key: "hp", Value: math.NaN()},
	))

	err := c.Export()
	require.Error(t, err)
	assert.Empty(t, exporter.filename)
	assert.True(t, prompter.last().isError)
	assert.Contains(t, prompter.last().message, "Export failed")
}

func TestExport_NoExporter(t *testing.T) {
	c := New(newMemStore(), &fakePrompter{}, nil, nil)
	require.NoError(t, c.Load(context.Background(), "demo"))

	assert.ErrorIs(t, c.Export(), ErrNoExporter)
}

func TestSwitchTab(t *testing.T) {
	c, _, _, _ := setup(t, "demo")
	c.SetSearch("hero")
	c.ToggleSort("name")

	require.NoError(t, c.SwitchTab("SKILL"))
	assert.Equal(t, Session{World: "demo", Tab: "SKILL"}, c.State())

	assert.ErrorIs(t, c.SwitchTab("PORTAL"), schema.ErrUnknownTab)
	assert.Equal(t, schema.Tab("SKILL"), c.State().Tab)
}

func TestToggleSort(t *testing.T) {
	c, _, _, _ := setup(t, "demo")
	c.ToggleSort("name")
	c.ToggleSort("name")
	assert.Equal(t, table.Sort{Column: "name", Descending: true}, c.State().Sort)
	c.ToggleSort("id")
	assert.Equal(t, table.Sort{Column: "id"}, c.State().Sort)
}

func TestCommitForm_ValidationKeepsFormOpen(t *testing.T) {
	c, _, prompter, _ := setup(t, "demo")
	f, err := c.OpenNew()
	require.NoError(t, err)
	raw := f.Raw()
	raw["hp"] = form.Input{Text: "lots"}

	_, err = c.CommitForm(raw)
	var verr *form.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Same(t, f, c.Form())
	assert.False(t, c.Dirty())
	assert.True(t, prompter.last().isError)
	assert.Equal(t, 1, c.Document().Entities.Len())
}

func TestCommitForm_NoForm(t *testing.T) {
	c, _, _, _ := setup(t, "demo")
	_, err := c.CommitForm(nil)
	assert.ErrorIs(t, err, ErrNoForm)
}

func TestDeleteForm(t *testing.T) {
	c, _, prompter, _ := setup(t, "demo")
	h := c.Document().Entities.Handles()[0]
	_, err := c.OpenRecord(h)
	require.NoError(t, err)

	removed, err := c.DeleteForm()
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NotNil(t, c.Form())

	prompter.delete = true
	removed, err = c.DeleteForm()
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Nil(t, c.Form())
	assert.Equal(t, 0, c.Document().Entities.Len())
	assert.True(t, c.Dirty())
}

func TestMutation_ClosesFormOfRemovedRecord(t *testing.T) {
	c, _, _, _ := setup(t, "demo")
	h := c.Document().Entities.Handles()[0]
	_, err := c.OpenRecord(h)
	require.NoError(t, err)

	require.NoError(t, c.mutator.Update(schema.EntitiesTab, h, world.NewRecord(world.Field{Key: "id", Value: "hero"})))
	assert.NotNil(t, c.Form(), "an update keeps the form open")

	require.NoError(t, c.mutator.Delete(schema.EntitiesTab, h))
	assert.Nil(t, c.Form())
	assert.True(t, c.Dirty())
}

func TestDuplicateForm_NewRecord(t *testing.T) {
	c, _, _, _ := setup(t, "demo")
	f, err := c.OpenNew()
	require.NoError(t, err)
	raw := f.Raw()
	raw["id"] = form.Input{Text: "ghost"}

	_, err = c.DuplicateForm(raw)
	assert.ErrorIs(t, err, form.ErrNotSaved)
	assert.Same(t, f, c.Form())
	assert.Equal(t, 1, c.Document().Entities.Len())
}

func TestListWorlds(t *testing.T) {
	c, _, _, _ := setup(t, "")
	names, err := c.ListWorlds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"demo", "edges"}, names)
}
