package world

import (
	"encoding/json"
	"iter"
)

// Handle identifies a record slot within a collection. Handles are never
// reused, so two records with identical fields still have distinct handles.
// The zero Handle never refers to a record.
type Handle uint64

// Collection is an ordered arena of records. Appends go to the end, updates
// overwrite a slot without changing its handle, removals drop the slot.
type Collection struct {
	entries []entry
	next    Handle
}

type entry struct {
	handle Handle
	rec    Record
}

// NewCollection returns a collection holding recs in order.
func NewCollection(recs ...Record) *Collection {
	c := &Collection{}
	for _, r := range recs {
		c.Append(r)
	}
	return c
}

// Append adds r at the end and returns its handle.
func (c *Collection) Append(r Record) Handle {
	c.next++
	c.entries = append(c.entries, entry{handle: c.next, rec: r.Clone()})
	return c.next
}

func (c *Collection) find(h Handle) int {
	for i, e := range c.entries {
		if e.handle == h {
			return i
		}
	}
	return -1
}

// Get returns a copy of the record at h.
func (c *Collection) Get(h Handle) (Record, bool) {
	if i := c.find(h); i >= 0 {
		return c.entries[i].rec.Clone(), true
	}
	return Record{}, false
}

// Contains reports whether h refers to a live record.
func (c *Collection) Contains(h Handle) bool {
	return c.find(h) >= 0
}

// Replace overwrites the slot at h with r.
func (c *Collection) Replace(h Handle, r Record) bool {
	i := c.find(h)
	if i < 0 {
		return false
	}
	c.entries[i].rec = r.Clone()
	return true
}

// Remove drops exactly the slot at h.
func (c *Collection) Remove(h Handle) bool {
	i := c.find(h)
	if i < 0 {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

func (c *Collection) Len() int {
	return len(c.entries)
}

// Handles lists live handles in collection order.
func (c *Collection) Handles() []Handle {
	out := make([]Handle, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.handle
	}
	return out
}

// All iterates records in collection order. Yielded records are copies.
func (c *Collection) All() iter.Seq2[Handle, Record] {
	return func(yield func(Handle, Record) bool) {
		for _, e := range c.entries {
			if !yield(e.handle, e.rec.Clone()) {
				return
			}
		}
	}
}

// Records returns copies of all records in order.
func (c *Collection) Records() []Record {
	out := make([]Record, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.rec.Clone()
	}
	return out
}

// Clone copies the collection, keeping handles stable.
func (c *Collection) Clone() *Collection {
	out := &Collection{next: c.next, entries: make([]entry, len(c.entries))}
	for i, e := range c.entries {
		out.entries[i] = entry{handle: e.handle, rec: e.rec.Clone()}
	}
	return out
}

func (c *Collection) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(c.Records())
}

func (c *Collection) UnmarshalJSON(data []byte) error {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return err
	}
	*c = *NewCollection(recs...)
	return nil
}
