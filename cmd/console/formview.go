package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/world-editor/pkg/form"
)

// fieldEditor holds the control state of one form field.
type fieldEditor struct {
	field   form.Field
	input   textinput.Model
	area    textarea.Model
	options []string
	choice  int
	checked bool
}

func newFieldEditor(f form.Field, width int) fieldEditor {
	e := fieldEditor{field: f}
	switch f.Widget {
	case form.WidgetTextarea:
		ta := textarea.New()
		ta.ShowLineNumbers = false
		ta.Prompt = ""
		ta.CharLimit = 4000
		ta.SetWidth(width)
		ta.SetHeight(3)
		ta.SetValue(f.Initial.Text)
		ta.Blur()
		e.area = ta
	case form.WidgetSelect:
		e.options = slices.Clone(f.Column.Options)
		// Keep an out-of-list stored value selectable so it is not silently replaced.
		if !slices.Contains(e.options, f.Initial.Text) {
			e.options = append([]string{f.Initial.Text}, e.options...)
		}
		e.choice = slices.Index(e.options, f.Initial.Text)
	case form.WidgetCheckbox:
		e.checked = f.Initial.Checked
	default:
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 500
		ti.SetValue(f.Initial.Text)
		if f.Widget == form.WidgetNumber {
			ti.Placeholder = "0"
		}
		e.input = ti
	}
	return e
}

func (e *fieldEditor) focus() tea.Cmd {
	switch e.field.Widget {
	case form.WidgetTextarea:
		return e.area.Focus()
	case form.WidgetText, form.WidgetNumber:
		return e.input.Focus()
	}
	return nil
}

func (e *fieldEditor) blur() {
	switch e.field.Widget {
	case form.WidgetTextarea:
		e.area.Blur()
	case form.WidgetText, form.WidgetNumber:
		e.input.Blur()
	}
}

func (e *fieldEditor) value() form.Input {
	switch e.field.Widget {
	case form.WidgetTextarea:
		return form.Input{Text: e.area.Value()}
	case form.WidgetSelect:
		if e.choice < 0 || e.choice >= len(e.options) {
			return form.Input{}
		}
		return form.Input{Text: e.options[e.choice]}
	case form.WidgetCheckbox:
		return form.Input{Checked: e.checked}
	default:
		return form.Input{Text: e.input.Value()}
	}
}

// cycle moves a select by delta, wrapping at both ends.
func (e *fieldEditor) cycle(delta int) {
	n := len(e.options)
	if n == 0 {
		return
	}
	e.choice = ((e.choice+delta)%n + n) % n
}

func (e *fieldEditor) update(msg tea.Msg) tea.Cmd {
	key, isKey := msg.(tea.KeyMsg)
	switch e.field.Widget {
	case form.WidgetSelect:
		if !isKey {
			return nil
		}
		switch key.String() {
		case "left", "h":
			e.cycle(-1)
		case "right", "l", " ":
			e.cycle(1)
		}
		return nil
	case form.WidgetCheckbox:
		if isKey && (key.String() == " " || key.String() == "x") {
			e.checked = !e.checked
		}
		return nil
	case form.WidgetTextarea:
		var cmd tea.Cmd
		e.area, cmd = e.area.Update(msg)
		return cmd
	default:
		var cmd tea.Cmd
		e.input, cmd = e.input.Update(msg)
		return cmd
	}
}

func (e *fieldEditor) view(focused bool) string {
	switch e.field.Widget {
	case form.WidgetTextarea:
		return e.area.View()
	case form.WidgetSelect:
		current := "(none)"
		if e.choice >= 0 && e.choice < len(e.options) && e.options[e.choice] != "" {
			current = e.options[e.choice]
		}
		if focused {
			return "◀ " + pillStyle.Render(current) + " ▶"
		}
		return pillStyle.Render(current)
	case form.WidgetCheckbox:
		if e.checked {
			return "[x]"
		}
		return "[ ]"
	default:
		return e.input.View()
	}
}

// formEditor is the modal for an open form.
type formEditor struct {
	form    *form.Form
	fields  []fieldEditor
	focused int
	errors  map[string]string
}

func newFormEditor(f *form.Form, width int) (formEditor, tea.Cmd) {
	ed := formEditor{form: f, fields: make([]fieldEditor, 0, len(f.Fields))}
	for _, fld := range f.Fields {
		ed.fields = append(ed.fields, newFieldEditor(fld, width))
	}
	var cmd tea.Cmd
	if len(ed.fields) > 0 {
		cmd = ed.fields[0].focus()
	}
	return ed, cmd
}

// raw collects the current control states for the controller.
func (ed *formEditor) raw() form.RawValues {
	raw := make(form.RawValues, len(ed.fields))
	for i := range ed.fields {
		raw[ed.fields[i].field.Column.Key] = ed.fields[i].value()
	}
	return raw
}

func (ed *formEditor) move(delta int) tea.Cmd {
	if len(ed.fields) == 0 {
		return nil
	}
	ed.fields[ed.focused].blur()
	n := len(ed.fields)
	ed.focused = ((ed.focused+delta)%n + n) % n
	return ed.fields[ed.focused].focus()
}

func (ed *formEditor) focusedField() *fieldEditor {
	if len(ed.fields) == 0 {
		return nil
	}
	return &ed.fields[ed.focused]
}

func (ed *formEditor) setErrors(verr *form.ValidationError) {
	ed.errors = make(map[string]string, len(verr.Fields))
	for _, fe := range verr.Fields {
		ed.errors[fe.Key] = fe.Message
	}
}

func (ed *formEditor) view(width int) string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render(ed.form.Title))
	b.WriteString("\n\n")

	labelWidth := 0
	for _, fe := range ed.fields {
		labelWidth = max(labelWidth, len(fe.field.Column.Label))
	}
	for i := range ed.fields {
		fe := &ed.fields[i]
		label := fmt.Sprintf("%-*s", labelWidth, fe.field.Column.Label)
		if i == ed.focused {
			label = focusedLabelStyle.Render(label)
		} else {
			label = labelStyle.Render(label)
		}
		b.WriteString(label + "  " + fe.view(i == ed.focused))
		if msg, ok := ed.errors[fe.field.Column.Key]; ok {
			b.WriteString("  " + errorStyle.Render(msg))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := "Tab/↑↓ move · ←→ cycle · Space toggle · Ctrl+S save · Esc cancel"
	if !ed.form.IsNew {
		help = "Tab/↑↓ move · ←→ cycle · Space toggle · Ctrl+S save · Ctrl+D duplicate · Ctrl+X delete · Esc cancel"
	}
	b.WriteString(promptStyle.Width(width).Render(help))
	return b.String()
}
