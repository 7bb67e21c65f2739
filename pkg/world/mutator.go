package world

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/world-editor/pkg/schema"
)

// ErrRecordNotFound is returned when a handle no longer refers to a record.
var ErrRecordNotFound = errors.New("record not found")

// Mutator applies edits to a document and tracks whether it differs from
// the last saved state. Every successful mutation marks the document dirty,
// even when the stored values did not change.
type Mutator struct {
	doc      *Document
	dirty    bool
	revision uint64
	onChange func()
}

// NewMutator wraps doc. The document starts clean.
func NewMutator(doc *Document) *Mutator {
	if doc == nil {
		doc = NewDocument("", "")
	}
	doc.ensureCollections()
	return &Mutator{doc: doc}
}

// OnChange registers a hook called after every mutation.
func (m *Mutator) OnChange(fn func()) {
	m.onChange = fn
}

func (m *Mutator) Document() *Document {
	return m.doc
}

func (m *Mutator) Dirty() bool {
	return m.dirty
}

// Revision increases with every mutation.
func (m *Mutator) Revision() uint64 {
	return m.revision
}

// MarkClean clears the dirty flag if no mutation happened after revision.
// It reports whether the flag was cleared.
func (m *Mutator) MarkClean(revision uint64) bool {
	if revision != m.revision {
		return false
	}
	m.dirty = false
	return true
}

func (m *Mutator) touch() {
	m.dirty = true
	m.revision++
	if m.onChange != nil {
		m.onChange()
	}
}

// Create appends rec to the collection for tab.
func (m *Mutator) Create(tab schema.Tab, rec Record) Handle {
	h := m.doc.CollectionFor(tab).Append(rec)
	m.touch()
	return h
}

// Update replaces the contents of the record at h. The handle stays valid.
func (m *Mutator) Update(tab schema.Tab, h Handle, rec Record) error {
	if !m.doc.CollectionFor(tab).Replace(h, rec) {
		return fmt.Errorf("failed to update %s record %d: %w", tab, h, ErrRecordNotFound)
	}
	m.touch()
	return nil
}

// Delete removes exactly the record at h.
func (m *Mutator) Delete(tab schema.Tab, h Handle) error {
	if !m.doc.CollectionFor(tab).Remove(h) {
		return fmt.Errorf("failed to delete %s record %d: %w", tab, h, ErrRecordNotFound)
	}
	m.touch()
	return nil
}

// SetMeta changes the world name and description.
func (m *Mutator) SetMeta(name, description string) {
	m.doc.Name = name
	m.doc.Description = description
	m.touch()
}
