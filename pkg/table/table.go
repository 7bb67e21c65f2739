// Package table renders the records of one editor tab as a filterable,
// sortable grid. The view is renderer-neutral; the console draws it.
package table

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/world"
)

// Style tells a renderer how to present a cell.
type Style int

const (
	StylePlain Style = iota
	StyleID
	StyleNumber
	StylePill
	StyleCheck
)

const (
	CheckMark = "✓"
	NoMark    = "—"
)

// Cell is one rendered value.
type Cell struct {
	Key   string
	Text  string
	Style Style
	// Checked is set for check cells holding a true value.
	Checked bool
}

// Row is one record of the grid. Handle refers to the live record in the
// document, so edits opened from a row act on the stored record.
type Row struct {
	Handle world.Handle
	Cells  []Cell
}

// EmptyState explains why a view has no rows.
type EmptyState int

const (
	EmptyNone EmptyState = iota
	EmptyNoRecords
	EmptyNoMatches
)

// Message is the text shown in place of the grid.
func (e EmptyState) Message() string {
	switch e {
	case EmptyNoRecords:
		return "No records in this tab."
	case EmptyNoMatches:
		return "No records match the search."
	default:
		return ""
	}
}

// Sort selects the sort column and direction. The zero value means
// collection order.
type Sort struct {
	Column     string
	Descending bool
}

func (s Sort) Active() bool {
	return s.Column != ""
}

// Toggle returns the sort after clicking the header of col: the same column
// flips direction, a different column is selected ascending.
func (s Sort) Toggle(col string) Sort {
	if s.Column == col {
		return Sort{Column: col, Descending: !s.Descending}
	}
	return Sort{Column: col}
}

// View is the rendered grid for one tab.
type View struct {
	Tab     schema.Tab
	Columns []schema.Column
	Rows    []Row
	Empty   EmptyState
	// Total counts the tab's records before filtering.
	Total  int
	Sort   Sort
	Search string
	// Actions is always true: every row carries a trailing edit action.
	Actions bool
}

// Engine renders views against a schema registry.
type Engine struct {
	registry *schema.Registry
	lang     language.Tag
}

// NewEngine returns an engine that collates strings for lang.
func NewEngine(registry *schema.Registry, lang language.Tag) *Engine {
	if registry == nil {
		registry = schema.Default()
	}
	return &Engine{registry: registry, lang: lang}
}

// VisibleColumns drops the columns that only appear in the form.
func VisibleColumns(cols []schema.Column) []schema.Column {
	out := make([]schema.Column, 0, len(cols))
	for _, c := range cols {
		if c.Kind == schema.KindTextarea {
			continue
		}
		out = append(out, c)
	}
	return out
}

type candidate struct {
	handle world.Handle
	rec    world.Record
}

// Render builds the view of tab. A non-empty search keeps rows where any
// visible column contains it, ignoring case. Sorting is stable.
func (e *Engine) Render(doc *world.Document, tab schema.Tab, search string, sort Sort) (*View, error) {
	cols, err := e.registry.Columns(tab)
	if err != nil {
		return nil, err
	}
	visible := VisibleColumns(cols)
	view := &View{
		Tab:     tab,
		Columns: visible,
		Sort:    sort,
		Search:  search,
		Actions: true,
	}

	rows := e.collect(doc, tab)
	view.Total = len(rows)
	if len(rows) == 0 {
		view.Empty = EmptyNoRecords
		return view, nil
	}

	if search != "" {
		rows = filterRows(rows, visible, search)
		if len(rows) == 0 {
			view.Empty = EmptyNoMatches
			return view, nil
		}
	}

	if sort.Active() {
		e.sortRows(rows, sort)
	}

	view.Rows = make([]Row, len(rows))
	for i, r := range rows {
		view.Rows[i] = Row{Handle: r.handle, Cells: formatCells(tab, visible, r.rec)}
	}
	return view, nil
}

func (e *Engine) collect(doc *world.Document, tab schema.Tab) []candidate {
	var rows []candidate
	for h, rec := range doc.CollectionFor(tab).All() {
		if tab != schema.EntitiesTab && rec.Text("type") != string(tab) {
			continue
		}
		rows = append(rows, candidate{handle: h, rec: rec})
	}
	return rows
}

func filterRows(rows []candidate, cols []schema.Column, search string) []candidate {
	fold := cases.Fold()
	term := fold.String(search)
	out := rows[:0:0]
	for _, r := range rows {
		for _, c := range cols {
			if strings.Contains(fold.String(r.rec.Text(c.Key)), term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func (e *Engine) sortRows(rows []candidate, sort Sort) {
	coll := collate.New(e.lang)
	slices.SortStableFunc(rows, func(a, b candidate) int {
		cmp := compareValues(coll, a.rec, b.rec, sort.Column)
		if sort.Descending {
			return -cmp
		}
		return cmp
	})
}

// compareValues orders numbers numerically and everything else as collated
// strings. A missing value compares as the empty string.
func compareValues(coll *collate.Collator, a, b world.Record, key string) int {
	an, aNum := a.Number(key)
	bn, bNum := b.Number(key)
	if aNum && bNum {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return coll.CompareString(a.Text(key), b.Text(key))
}

func formatCells(tab schema.Tab, cols []schema.Column, rec world.Record) []Cell {
	cells := make([]Cell, len(cols))
	for i, c := range cols {
		v, present := rec.Get(c.Key)
		cell := Cell{Key: c.Key}
		switch {
		case c.Key == "type" && tab == schema.EntitiesTab:
			cell.Style = StylePill
			cell.Text = world.FormatValue(v)
		case c.Kind == schema.KindCheckbox:
			cell.Style = StyleCheck
			cell.Checked = present && world.Truthy(v)
			cell.Text = NoMark
			if cell.Checked {
				cell.Text = CheckMark
			}
		case c.Key == "id":
			cell.Style = StyleID
			cell.Text = world.FormatValue(v)
		default:
			if _, isNum := v.(float64); isNum {
				cell.Style = StyleNumber
			}
			cell.Text = world.FormatValue(v)
		}
		cells[i] = cell
	}
	return cells
}
