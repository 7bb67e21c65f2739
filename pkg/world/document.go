package world

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/world-editor/pkg/schema"
)

// Document is one persisted world: metadata plus the entity and relation
// collections. It is the only unit the world store reads and writes.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Entities    *Collection `json:"entities"`
	Relations   *Collection `json:"relations"`
}

// NewDocument returns an empty document.
func NewDocument(name, description string) *Document {
	return &Document{
		Name:        name,
		Description: description,
		Entities:    NewCollection(),
		Relations:   NewCollection(),
	}
}

// Decode parses a world document. Missing collections decode as empty.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode world document: %w", err)
	}
	doc.ensureCollections()
	return &doc, nil
}

func (d *Document) ensureCollections() {
	if d.Entities == nil {
		d.Entities = NewCollection()
	}
	if d.Relations == nil {
		d.Relations = NewCollection()
	}
}

// Encode renders the document as JSON indented by two spaces, leaving
// HTML characters and non-ASCII text unescaped.
func (d *Document) Encode() ([]byte, error) {
	d.ensureCollections()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode world document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Clone deep-copies the document, keeping record handles.
func (d *Document) Clone() *Document {
	d.ensureCollections()
	return &Document{
		Name:        d.Name,
		Description: d.Description,
		Entities:    d.Entities.Clone(),
		Relations:   d.Relations.Clone(),
	}
}

// CollectionFor returns the collection that stores records of tab.
func (d *Document) CollectionFor(tab schema.Tab) *Collection {
	d.ensureCollections()
	if tab == schema.EntitiesTab {
		return d.Entities
	}
	return d.Relations
}

// MaxRelationID returns the largest numeric relation id, or 0 when there are
// no relations with numeric ids.
func (d *Document) MaxRelationID() float64 {
	d.ensureCollections()
	var maxID float64
	for _, rec := range d.Relations.All() {
		if id, ok := rec.Number("id"); ok && id > maxID {
			maxID = id
		}
	}
	return maxID
}

// NextRelationID is the id assigned to a newly created relation.
func (d *Document) NextRelationID() float64 {
	return d.MaxRelationID() + 1
}
