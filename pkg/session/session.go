// Package session owns the editing state of one world: the loaded document,
// the active tab with its search and sort, and the open form. It talks to
// the world store and the user through small collaborator interfaces.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/jwebster45206/world-editor/pkg/form"
	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/table"
	"github.com/jwebster45206/world-editor/pkg/world"
)

var (
	// ErrNotFound is returned by a Store when the requested world does not exist.
	ErrNotFound = errors.New("world not found")
	// ErrStorage is returned by a Store when a world could not be persisted.
	ErrStorage = errors.New("storage error")

	ErrNoWorld = errors.New("no world loaded")
	ErrNoForm  = errors.New("no form open")

	// ErrNoExporter is returned by Export when the controller has no exporter.
	ErrNoExporter = errors.New("export is not available")
)

// Store lists, fetches and persists named world documents.
type Store interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name string) (*world.Document, error)
	Persist(ctx context.Context, name string, doc *world.Document) error
}

// Prompter asks the user for confirmation and shows notifications.
type Prompter interface {
	ConfirmDiscard() bool
	ConfirmDelete() bool
	Notify(message string, isError bool)
}

// Exporter hands an exported document to the user under filename.
type Exporter interface {
	Export(filename string, data []byte) error
}

// Ticket identifies one load or save round trip. Only the most recently
// issued ticket of each kind is honored when its result arrives.
type Ticket uint64

// LoadRequest is an issued load waiting for the store.
type LoadRequest struct {
	Ticket Ticket
	Name   string
}

// SaveRequest is an issued save. Doc is a snapshot taken when the save
// began, so edits made while it is in flight are not sent.
type SaveRequest struct {
	Ticket   Ticket
	Name     string
	Doc      *world.Document
	mutator  *world.Mutator
	revision uint64
}

// Session is the editing state visible to a UI.
type Session struct {
	World  string
	Tab    schema.Tab
	Sort   table.Sort
	Search string
	Form   *form.Form
	Dirty  bool
}

// Controller applies user actions to the session.
type Controller struct {
	store    Store
	prompter Prompter
	exporter Exporter
	logger   *slog.Logger

	registry *schema.Registry
	tables   *table.Engine
	forms    *form.Engine

	state   Session
	mutator *world.Mutator

	generation  Ticket
	pendingLoad Ticket
	pendingSave Ticket
}

// New returns a controller with no world loaded.
func New(store Store, prompter Prompter, exporter Exporter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	registry := schema.Default()
	return &Controller{
		store:    store,
		prompter: prompter,
		exporter: exporter,
		logger:   logger,
		registry: registry,
		tables:   table.NewEngine(registry, language.Und),
		forms:    form.NewEngine(registry),
		state:    Session{Tab: schema.EntitiesTab},
	}
}

// State returns a copy of the session state.
func (c *Controller) State() Session {
	s := c.state
	s.Dirty = c.Dirty()
	return s
}

func (c *Controller) Registry() *schema.Registry {
	return c.registry
}

// Loaded reports whether a world is open.
func (c *Controller) Loaded() bool {
	return c.mutator != nil
}

// Document returns the open document, or nil.
func (c *Controller) Document() *world.Document {
	if c.mutator == nil {
		return nil
	}
	return c.mutator.Document()
}

func (c *Controller) Dirty() bool {
	return c.mutator != nil && c.mutator.Dirty()
}

func (c *Controller) notify(message string, isError bool) {
	if c.prompter != nil {
		c.prompter.Notify(message, isError)
	}
}

// changed runs after every mutation of the open document. A form whose
// record is gone is closed.
func (c *Controller) changed() {
	c.logger.Debug("World changed", "world", c.state.World, "revision", c.mutator.Revision())
	f := c.state.Form
	if f == nil || f.IsNew {
		return
	}
	if !c.mutator.Document().CollectionFor(f.Tab).Contains(f.Target) {
		c.logger.Debug("Closing form for removed record", "tab", f.Tab, "handle", f.Target)
		c.state.Form = nil
	}
}

func (c *Controller) next() Ticket {
	c.generation++
	return c.generation
}

// ListWorlds returns the names the store knows about.
func (c *Controller) ListWorlds(ctx context.Context) ([]string, error) {
	names, err := c.store.List(ctx)
	if err != nil {
		c.logger.Error("Failed to list worlds", "error", err)
		c.notify(fmt.Sprintf("Error: %v", err), true)
		return nil, fmt.Errorf("failed to list worlds: %w", err)
	}
	return names, nil
}

// BeginLoad issues a load of name. It returns false when name is empty or
// the user declined to discard unsaved changes.
func (c *Controller) BeginLoad(name string) (LoadRequest, bool) {
	if name == "" {
		return LoadRequest{}, false
	}
	if c.Dirty() && (c.prompter == nil || !c.prompter.ConfirmDiscard()) {
		return LoadRequest{}, false
	}
	t := c.next()
	c.pendingLoad = t
	return LoadRequest{Ticket: t, Name: name}, true
}

// FinishLoad applies the result of req. Results of superseded requests are
// dropped and FinishLoad returns false. On error the current document stays.
func (c *Controller) FinishLoad(req LoadRequest, doc *world.Document, err error) bool {
	if req.Ticket != c.pendingLoad {
		c.logger.Debug("Dropping stale load result", "world", req.Name, "ticket", req.Ticket)
		return false
	}
	c.pendingLoad = 0
	if err != nil {
		c.logger.Error("Failed to load world", "world", req.Name, "error", err)
		c.notify(fmt.Sprintf("Error: %v", err), true)
		return true
	}
	if doc == nil {
		doc = world.NewDocument(req.Name, "")
	}

	c.mutator = world.NewMutator(doc)
	c.mutator.OnChange(c.changed)
	c.state = Session{World: req.Name, Tab: schema.EntitiesTab}
	c.logger.Info("World loaded", "world", req.Name,
		"entities", doc.Entities.Len(), "relations", doc.Relations.Len())
	c.notify("Loaded world: "+req.Name, false)
	return true
}

// Load fetches name and makes it the open world.
func (c *Controller) Load(ctx context.Context, name string) error {
	req, ok := c.BeginLoad(name)
	if !ok {
		return nil
	}
	doc, err := c.store.Fetch(ctx, req.Name)
	c.FinishLoad(req, doc, err)
	if err != nil {
		return fmt.Errorf("failed to load world %s: %w", name, err)
	}
	return nil
}

// BeginSave issues a save of the open world.
func (c *Controller) BeginSave() (SaveRequest, error) {
	if c.mutator == nil {
		return SaveRequest{}, ErrNoWorld
	}
	t := c.next()
	c.pendingSave = t
	return SaveRequest{
		Ticket:   t,
		Name:     c.state.World,
		Doc:      c.mutator.Document().Clone(),
		mutator:  c.mutator,
		revision: c.mutator.Revision(),
	}, nil
}

// FinishSave applies the outcome of req. A failed save leaves the document
// dirty. A successful one clears dirty only if nothing changed since req
// was issued.
func (c *Controller) FinishSave(req SaveRequest, err error) bool {
	if req.Ticket != c.pendingSave {
		c.logger.Debug("Dropping stale save result", "world", req.Name, "ticket", req.Ticket)
		return false
	}
	c.pendingSave = 0
	if err != nil {
		c.logger.Error("Failed to save world", "world", req.Name, "error", err)
		c.notify(fmt.Sprintf("Save failed: %v", err), true)
		return true
	}
	if req.mutator == c.mutator {
		c.mutator.MarkClean(req.revision)
	}
	c.logger.Info("World saved", "world", req.Name)
	c.notify("Saved ✓", false)
	return true
}

// Save persists the open world.
func (c *Controller) Save(ctx context.Context) error {
	req, err := c.BeginSave()
	if err != nil {
		return err
	}
	err = c.store.Persist(ctx, req.Name, req.Doc)
	c.FinishSave(req, err)
	if err != nil {
		return fmt.Errorf("failed to save world %s: %w", req.Name, err)
	}
	return nil
}

// ExportFilename is the file name used when exporting the open world.
func (c *Controller) ExportFilename() string {
	return c.state.World + ".json"
}

// Export hands the formatted document to the exporter as <world>.json.
func (c *Controller) Export() error {
	if c.mutator == nil {
		return ErrNoWorld
	}
	if c.exporter == nil {
		c.notify("Export is not available", true)
		return ErrNoExporter
	}
	data, err := c.mutator.Document().Encode()
	if err != nil {
		c.logger.Error("Failed to encode world", "world", c.state.World, "error", err)
		c.notify(fmt.Sprintf("Export failed: %v", err), true)
		return fmt.Errorf("failed to encode world %s: %w", c.state.World, err)
	}
	if err := c.exporter.Export(c.ExportFilename(), data); err != nil {
		c.logger.Error("Failed to export world", "world", c.state.World, "error", err)
		c.notify(fmt.Sprintf("Export failed: %v", err), true)
		return fmt.Errorf("failed to export world %s: %w", c.state.World, err)
	}
	c.notify("Exported "+c.ExportFilename(), false)
	return nil
}

// SetWorldMeta changes the document name and description.
func (c *Controller) SetWorldMeta(name, description string) error {
	if c.mutator == nil {
		return ErrNoWorld
	}
	c.mutator.SetMeta(name, description)
	return nil
}
