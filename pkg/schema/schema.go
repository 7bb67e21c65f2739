package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed schemas.yaml
var definitions []byte

// ErrUnknownTab is returned when a tab has no column schema.
var ErrUnknownTab = errors.New("unknown tab")

// Kind is the value kind of a column. It selects the table formatting,
// the form widget and the coercion applied when a form is read back.
type Kind int

const (
	KindText Kind = iota
	KindTextarea
	KindSelect
	KindNumber
	KindCheckbox
)

var kindNames = [...]string{
	KindText:     "text",
	KindTextarea: "textarea",
	KindSelect:   "select",
	KindNumber:   "number",
	KindCheckbox: "checkbox",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindText, KindTextarea, KindSelect, KindNumber, KindCheckbox}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a kind name from the definitions file to a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown column kind %q", s)
}

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Tab selects the records shown by the editor: either the entity collection
// or the relations of one type.
type Tab string

// EntitiesTab is the tab listing all entities.
const EntitiesTab Tab = "entities"

// Column describes one field of a record.
type Column struct {
	Key      string   `yaml:"key"`
	Label    string   `yaml:"label"`
	Kind     Kind     `yaml:"kind"`
	Optional bool     `yaml:"optional"`
	Options  []string `yaml:"options"`
}

func (c Column) clone() Column {
	c.Options = slices.Clone(c.Options)
	return c
}

type relationDef struct {
	Type    string   `yaml:"type"`
	Columns []Column `yaml:"columns"`
}

type definitionFile struct {
	Version        int           `yaml:"version"`
	Entity         []Column      `yaml:"entity"`
	RelationCommon []Column      `yaml:"relation_common"`
	Relations      []relationDef `yaml:"relations"`
}

// relationPrefix is the set of keys every relation schema starts with.
var relationPrefix = []string{"id", "ent1", "ent2"}

// Registry maps tabs to their ordered column lists. It is immutable once built.
type Registry struct {
	entity    []Column
	relations map[Tab][]Column
	order     []Tab
}

var defaultRegistry = mustLoad(definitions)

func mustLoad(data []byte) *Registry {
	r, err := Load(data)
	if err != nil {
		panic(fmt.Sprintf("schema: invalid embedded definitions: %v", err))
	}
	return r
}

// Default returns the registry built from the embedded definitions.
func Default() *Registry {
	return defaultRegistry
}

// Load decodes and validates a definitions document.
func Load(data []byte) (*Registry, error) {
	var def definitionFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("loading schema definitions: %w", err)
	}
	if def.Version != 1 {
		return nil, fmt.Errorf("unsupported schema version: %d", def.Version)
	}
	if err := validateColumns("entity", def.Entity); err != nil {
		return nil, err
	}
	if len(def.RelationCommon) < len(relationPrefix) {
		return nil, fmt.Errorf("relation_common must declare %s", strings.Join(relationPrefix, ", "))
	}
	for i, key := range relationPrefix {
		if def.RelationCommon[i].Key != key {
			return nil, fmt.Errorf("relation_common column %d must be %q, got %q", i, key, def.RelationCommon[i].Key)
		}
	}

	r := &Registry{
		entity:    def.Entity,
		relations: make(map[Tab][]Column, len(def.Relations)),
	}
	for _, rel := range def.Relations {
		name := strings.TrimSpace(rel.Type)
		if name == "" {
			return nil, fmt.Errorf("relation type name is required")
		}
		tab := Tab(name)
		if tab == EntitiesTab {
			return nil, fmt.Errorf("relation type %q collides with the entity tab", name)
		}
		if _, exists := r.relations[tab]; exists {
			return nil, fmt.Errorf("duplicate relation type: %s", name)
		}
		cols := make([]Column, 0, len(def.RelationCommon)+len(rel.Columns))
		cols = append(cols, def.RelationCommon...)
		cols = append(cols, rel.Columns...)
		if err := validateColumns(name, cols); err != nil {
			return nil, err
		}
		r.relations[tab] = cols
		r.order = append(r.order, tab)
	}
	return r, nil
}

func validateColumns(owner string, cols []Column) error {
	if len(cols) == 0 {
		return fmt.Errorf("%s: at least one column is required", owner)
	}
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if strings.TrimSpace(c.Key) == "" {
			return fmt.Errorf("%s: column %d key is required", owner, i)
		}
		if _, dup := seen[c.Key]; dup {
			return fmt.Errorf("%s: duplicate column key %q", owner, c.Key)
		}
		seen[c.Key] = struct{}{}
		if c.Kind == KindSelect && len(c.Options) == 0 {
			return fmt.Errorf("%s: select column %q has no options", owner, c.Key)
		}
		if c.Kind != KindSelect && len(c.Options) > 0 {
			return fmt.Errorf("%s: column %q declares options but is %s", owner, c.Key, c.Kind)
		}
	}
	return nil
}

// Columns returns a copy of the columns for tab.
func (r *Registry) Columns(tab Tab) ([]Column, error) {
	var src []Column
	if tab == EntitiesTab {
		src = r.entity
	} else {
		cols, ok := r.relations[tab]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTab, tab)
		}
		src = cols
	}
	out := make([]Column, len(src))
	for i, c := range src {
		out[i] = c.clone()
	}
	return out, nil
}

// Column looks up a single column of tab by key.
func (r *Registry) Column(tab Tab, key string) (Column, bool) {
	cols, err := r.Columns(tab)
	if err != nil {
		return Column{}, false
	}
	for _, c := range cols {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// Tabs lists the entity tab followed by every relation type.
func (r *Registry) Tabs() []Tab {
	return append([]Tab{EntitiesTab}, r.order...)
}

// RelationTypes lists the relation tabs in declaration order.
func (r *Registry) RelationTypes() []Tab {
	return slices.Clone(r.order)
}

func (r *Registry) IsRelationTab(tab Tab) bool {
	_, ok := r.relations[tab]
	return ok
}

// EntityTypes returns the allowed values of the entity type column.
func (r *Registry) EntityTypes() []string {
	for _, c := range r.entity {
		if c.Key == "type" {
			return slices.Clone(c.Options)
		}
	}
	return nil
}
