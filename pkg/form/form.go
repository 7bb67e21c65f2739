// Package form builds edit forms from the column schema of a tab and turns
// the values read back from them into clean records.
package form

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/world"
)

// ErrNotSaved is returned when duplicating a record that was never stored.
var ErrNotSaved = errors.New("record has not been saved yet")

const (
	defaultEntityType = "UNIQUE"
	copySuffix        = "_copy"
)

// Field is one labeled input of a form.
type Field struct {
	Column schema.Column
	Widget Widget
	// Initial is the control state when the form opened.
	Initial Input
}

// Form is an open edit form. Target is zero for a record that does not
// exist yet.
type Form struct {
	Tab    schema.Tab
	IsNew  bool
	Target world.Handle
	Title  string
	Fields []Field
}

// RawValues holds control states keyed by column key.
type RawValues map[string]Input

// Values holds coerced field values keyed by column key. Absent fields have
// no entry.
type Values map[string]any

// Raw returns the initial control states of every field.
func (f *Form) Raw() RawValues {
	raw := make(RawValues, len(f.Fields))
	for _, fld := range f.Fields {
		raw[fld.Column.Key] = fld.Initial
	}
	return raw
}

// Field returns the field for key.
func (f *Form) Field(key string) (Field, bool) {
	for _, fld := range f.Fields {
		if fld.Column.Key == key {
			return fld, true
		}
	}
	return Field{}, false
}

// FieldError describes one rejected input.
type FieldError struct {
	Key     string
	Label   string
	Message string
}

// ValidationError is returned when inputs cannot be coerced to their
// column kinds. Nothing is committed when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Label, f.Message)
	}
	return "invalid form input: " + strings.Join(parts, "; ")
}

// Confirmer asks the user to confirm a delete.
type Confirmer interface {
	ConfirmDelete() bool
}

// Engine opens, reads and commits forms against a schema registry.
type Engine struct {
	registry *schema.Registry
}

func NewEngine(registry *schema.Registry) *Engine {
	if registry == nil {
		registry = schema.Default()
	}
	return &Engine{registry: registry}
}

// Open builds the form for the record at h in tab, or a blank form when
// isNew is set. New relations get the next free id and the tab as type.
func (e *Engine) Open(doc *world.Document, tab schema.Tab, h world.Handle, isNew bool) (*Form, error) {
	cols, err := e.registry.Columns(tab)
	if err != nil {
		return nil, err
	}

	var rec world.Record
	if isNew {
		rec = e.newRecord(doc, tab, cols)
		h = 0
	} else {
		var ok bool
		rec, ok = doc.CollectionFor(tab).Get(h)
		if !ok {
			return nil, fmt.Errorf("failed to open %s record %d: %w", tab, h, world.ErrRecordNotFound)
		}
	}

	f := &Form{
		Tab:    tab,
		IsNew:  isNew,
		Target: h,
		Title:  title(tab, isNew, rec),
		Fields: make([]Field, len(cols)),
	}
	for i, c := range cols {
		b := behaviorFor(c.Kind)
		v, present := rec.Get(c.Key)
		f.Fields[i] = Field{Column: c, Widget: b.widget, Initial: b.build(c, v, present)}
	}
	return f, nil
}

func (e *Engine) newRecord(doc *world.Document, tab schema.Tab, cols []schema.Column) world.Record {
	if tab == schema.EntitiesTab {
		return world.NewRecord(
			world.Field{Key: "id", Value: ""},
			world.Field{Key: "name", Value: ""},
			world.Field{Key: "type", Value: defaultEntityType},
			world.Field{Key: "description", Value: ""},
		)
	}
	rec := world.NewRecord(
		world.Field{Key: "id", Value: doc.NextRelationID()},
		world.Field{Key: "type", Value: string(tab)},
	)
	for _, c := range cols {
		if rec.Has(c.Key) {
			continue
		}
		if zero := behaviorFor(c.Kind).zero; zero != nil {
			rec.Set(c.Key, zero)
		}
	}
	return rec
}

func title(tab schema.Tab, isNew bool, rec world.Record) string {
	switch {
	case tab == schema.EntitiesTab && isNew:
		return "New entity"
	case tab == schema.EntitiesTab:
		return "Entity: " + rec.Text("id")
	case isNew:
		return "New relation: " + string(tab)
	default:
		return fmt.Sprintf("Relation #%s — %s", rec.Text("id"), tab)
	}
}

// ReadValues coerces raw control states to the kinds of the form's columns.
// Empty inputs are left out. Inputs that cannot be coerced are collected
// into a *ValidationError.
func (e *Engine) ReadValues(f *Form, raw RawValues) (Values, error) {
	values := make(Values, len(f.Fields))
	var verr ValidationError
	for _, fld := range f.Fields {
		in := raw[fld.Column.Key]
		v, ok, err := behaviorFor(fld.Column.Kind).read(fld.Column, in)
		if err != nil {
			verr.Fields = append(verr.Fields, FieldError{
				Key:     fld.Column.Key,
				Label:   fld.Column.Label,
				Message: err.Error(),
			})
			continue
		}
		if ok {
			values[fld.Column.Key] = v
		}
	}
	if len(verr.Fields) > 0 {
		return nil, &verr
	}
	return values, nil
}

// Clean builds the record stored for values: only the tab's schema keys,
// no empty values, booleans only when true. Relations always carry the tab
// as their type, ahead of the other fields.
func (e *Engine) Clean(tab schema.Tab, values Values) (world.Record, error) {
	cols, err := e.registry.Columns(tab)
	if err != nil {
		return world.Record{}, err
	}
	var rec world.Record
	if e.registry.IsRelationTab(tab) {
		rec.Set("type", string(tab))
	}
	for _, c := range cols {
		v, ok := values[c.Key]
		if !ok || isEmpty(v) {
			continue
		}
		rec.Set(c.Key, v)
	}
	return rec, nil
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	default:
		return false
	}
}

// Commit cleans values and stores them: appended when the form is new,
// otherwise written over the form's target so its handle stays valid.
func (e *Engine) Commit(m *world.Mutator, f *Form, values Values) (world.Handle, error) {
	rec, err := e.Clean(f.Tab, values)
	if err != nil {
		return 0, err
	}
	if f.IsNew {
		return m.Create(f.Tab, rec), nil
	}
	if err := m.Update(f.Tab, f.Target, rec); err != nil {
		return 0, err
	}
	return f.Target, nil
}

// Duplicate appends a cleaned copy of values with a fresh id and returns the
// handle of the copy. Entities get the "_copy" suffix, repeated until the id
// is unused; relations get the next free relation id.
func (e *Engine) Duplicate(m *world.Mutator, f *Form, values Values) (world.Handle, error) {
	if f.IsNew || f.Target == 0 {
		return 0, ErrNotSaved
	}
	rec, err := e.Clean(f.Tab, values)
	if err != nil {
		return 0, err
	}
	doc := m.Document()
	if f.Tab == schema.EntitiesTab {
		rec.Set("id", uniqueEntityID(doc, rec.Text("id")+copySuffix))
	} else {
		rec.Set("id", doc.NextRelationID())
	}
	return m.Create(f.Tab, rec), nil
}

func uniqueEntityID(doc *world.Document, id string) string {
	var taken []string
	for _, rec := range doc.Entities.All() {
		taken = append(taken, rec.Text("id"))
	}
	for slices.Contains(taken, id) {
		id += copySuffix
	}
	return id
}

// Delete removes the form's target once c confirms. It reports whether the
// record was removed.
func (e *Engine) Delete(m *world.Mutator, f *Form, c Confirmer) (bool, error) {
	if f.IsNew || f.Target == 0 {
		return false, nil
	}
	if c == nil || !c.ConfirmDelete() {
		return false, nil
	}
	if err := m.Delete(f.Tab, f.Target); err != nil {
		return false, err
	}
	return true, nil
}
