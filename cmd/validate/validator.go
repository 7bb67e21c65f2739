package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/world"
)

// WorldValidator checks a decoded world against the schema registry.
// Problems that would corrupt editing are errors; suspicious but loadable
// content is reported as a warning.
type WorldValidator struct {
	registry *schema.Registry
	errors   []string
	warnings []string
}

func NewWorldValidator(reg *schema.Registry) *WorldValidator {
	if reg == nil {
		reg = schema.Default()
	}
	return &WorldValidator{registry: reg}
}

func (v *WorldValidator) addError(format string, args ...any) {
	v.errors = append(v.errors, "  - "+fmt.Sprintf(format, args...))
}

func (v *WorldValidator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, "  - "+fmt.Sprintf(format, args...))
}

func (v *WorldValidator) Errors() []string   { return v.errors }
func (v *WorldValidator) Warnings() []string { return v.warnings }

// Validate decodes data and checks it. The returned error lists every problem.
func (v *WorldValidator) Validate(data []byte) error {
	v.errors = nil
	v.warnings = nil

	doc, err := world.Decode(data)
	if err != nil {
		return err
	}
	if strings.TrimSpace(doc.Name) == "" {
		v.addWarning("world has no name")
	}

	ids := v.validateEntities(doc)
	v.validateRelations(doc, ids)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *WorldValidator) validateEntities(doc *world.Document) map[string]bool {
	types := v.registry.EntityTypes()
	seen := make(map[string]bool, doc.Entities.Len())

	for i, rec := range doc.Entities.Records() {
		raw, ok := rec.Get("id")
		id, isString := raw.(string)
		switch {
		case !ok || !isString || id == "":
			v.addError("entity #%d has no string id", i+1)
		case seen[id]:
			v.addError("duplicate entity id %q", id)
		default:
			seen[id] = true
		}

		label := id
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if t := rec.Text("type"); !slices.Contains(types, t) {
			v.addError("entity %s has unknown type %q (must be one of %s)", label, t, strings.Join(types, ", "))
		}
		for _, key := range rec.Keys() {
			if _, known := v.registry.Column(schema.EntitiesTab, key); !known {
				v.addWarning("entity %s has field %q that the editor drops on edit", label, key)
			}
		}
	}
	return seen
}

func (v *WorldValidator) validateRelations(doc *world.Document, entities map[string]bool) {
	seenIDs := make(map[float64]bool, doc.Relations.Len())
	seenTriples := make(map[string]bool, doc.Relations.Len())

	for i, rec := range doc.Relations.Records() {
		label := fmt.Sprintf("#%d", i+1)
		id, ok := rec.Number("id")
		switch {
		case !ok:
			v.addError("relation %s has no numeric id", label)
		case seenIDs[id]:
			v.addError("duplicate relation id %s", world.FormatValue(id))
		default:
			seenIDs[id] = true
			label = world.FormatValue(id)
		}

		tab := schema.Tab(rec.Text("type"))
		if !v.registry.IsRelationTab(tab) {
			v.addError("relation %s has unknown type %q", label, tab)
			continue
		}
		for _, key := range rec.Keys() {
			if key == "type" {
				continue
			}
			if _, known := v.registry.Column(tab, key); !known {
				v.addError("relation %s (%s) has field %q outside its schema", label, tab, key)
			}
		}

		ent1, ent2 := rec.Text("ent1"), rec.Text("ent2")
		for _, ref := range []string{ent1, ent2} {
			if ref != "" && !entities[ref] {
				v.addWarning("relation %s (%s) references missing entity %q", label, tab, ref)
			}
		}
		triple := string(tab) + "\x00" + ent1 + "\x00" + ent2
		if seenTriples[triple] {
			v.addWarning("relation %s repeats %s from %q to %q", label, tab, ent1, ent2)
		}
		seenTriples[triple] = true
	}
}
