package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/table"
)

const (
	maxColumnWidth = 28
	minColumnWidth = 4
	columnGap      = 2
)

// columnWidths sizes each column to its widest cell, capped, then shrinks
// the widest columns until the row fits in width.
func columnWidths(view *table.View, width int) []int {
	widths := make([]int, len(view.Columns))
	for i, c := range view.Columns {
		widths[i] = min(max(lipgloss.Width(c.Label)+2, minColumnWidth), maxColumnWidth)
	}
	for _, r := range view.Rows {
		for i, cell := range r.Cells {
			if i < len(widths) {
				widths[i] = min(max(widths[i], lipgloss.Width(cell.Text)), maxColumnWidth)
			}
		}
	}
	if width <= 0 {
		return widths
	}
	total := func() int {
		sum := 0
		for _, w := range widths {
			sum += w + columnGap
		}
		return sum
	}
	for total() > width {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColumnWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

func fit(s string, width int) string {
	s = truncate.StringWithTail(s, uint(width), "…")
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func fitRight(s string, width int) string {
	s = truncate.StringWithTail(s, uint(width), "…")
	if pad := width - lipgloss.Width(s); pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s
}

func renderCell(cell table.Cell, width int) string {
	switch cell.Style {
	case table.StyleID:
		return idStyle.Render(fit(cell.Text, width))
	case table.StyleNumber:
		return numberStyle.Render(fitRight(cell.Text, width))
	case table.StylePill:
		return pillStyle.Render(fit(cell.Text, width))
	case table.StyleCheck:
		if cell.Checked {
			return checkStyle.Render(fit(cell.Text, width))
		}
		return mutedStyle.Render(fit(cell.Text, width))
	default:
		return fit(cell.Text, width)
	}
}

func sortMarker(view *table.View, col schema.Column) string {
	if view.Sort.Column != col.Key {
		return ""
	}
	if view.Sort.Descending {
		return " ▼"
	}
	return " ▲"
}

// renderTable draws the header and the rows from offset that fit in height.
// cursor is the selected row and selectedCol the column sort applies to.
func renderTable(view *table.View, width, height, offset, cursor, selectedCol int) string {
	if view.Empty != table.EmptyNone {
		return mutedStyle.Render(view.Empty.Message())
	}
	widths := columnWidths(view, width)
	gap := strings.Repeat(" ", columnGap)

	var b strings.Builder
	header := make([]string, len(view.Columns))
	for i, c := range view.Columns {
		text := fit(c.Label+sortMarker(view, c), widths[i])
		if i == selectedCol {
			header[i] = selectedHeaderStyle.Render(text)
		} else {
			header[i] = headerStyle.Render(text)
		}
	}
	b.WriteString("  " + strings.Join(header, gap))
	b.WriteString("\n")

	end := min(len(view.Rows), offset+max(height-1, 1))
	for i := offset; i < end; i++ {
		cells := make([]string, len(view.Columns))
		for j := range view.Columns {
			var cell table.Cell
			if j < len(view.Rows[i].Cells) {
				cell = view.Rows[i].Cells[j]
			}
			if i == cursor {
				cells[j] = fit(cell.Text, widths[j])
			} else {
				cells[j] = renderCell(cell, widths[j])
			}
		}
		line := strings.Join(cells, gap)
		if i == cursor {
			line = selectedRowStyle.Render("▶ " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderTabs draws the tab bar with the active tab highlighted.
func renderTabs(tabs []schema.Tab, active schema.Tab) string {
	parts := make([]string, len(tabs))
	for i, t := range tabs {
		label := string(t)
		if t == schema.EntitiesTab {
			label = "Entities"
		}
		if t == active {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = tabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
