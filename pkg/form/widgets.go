package form

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/world"
)

// Widget is the input control used for a field.
type Widget int

const (
	WidgetText Widget = iota
	WidgetTextarea
	WidgetSelect
	WidgetNumber
	WidgetCheckbox
)

func (w Widget) String() string {
	switch w {
	case WidgetTextarea:
		return "textarea"
	case WidgetSelect:
		return "select"
	case WidgetNumber:
		return "number"
	case WidgetCheckbox:
		return "checkbox"
	default:
		return "text"
	}
}

// Input is the raw state of one form control as read back from the UI.
type Input struct {
	Text    string
	Checked bool
}

// behavior bundles everything the engine does per column kind.
type behavior struct {
	widget Widget
	// build derives the initial control state from a stored value.
	build func(col schema.Column, v any, present bool) Input
	// read coerces a control state. ok=false means the field is absent.
	read func(col schema.Column, in Input) (v any, ok bool, err error)
	// zero is the default for new relation records; nil leaves the field out.
	zero any
}

var behaviors = map[schema.Kind]behavior{
	schema.KindText:     {widget: WidgetText, build: buildText, read: readText, zero: ""},
	schema.KindTextarea: {widget: WidgetTextarea, build: buildText, read: readText, zero: ""},
	schema.KindSelect:   {widget: WidgetSelect, build: buildSelect, read: readSelect, zero: ""},
	schema.KindNumber:   {widget: WidgetNumber, build: buildText, read: readNumber, zero: 0.0},
	schema.KindCheckbox: {widget: WidgetCheckbox, build: buildCheckbox, read: readCheckbox},
}

func init() {
	for _, k := range schema.Kinds() {
		if _, ok := behaviors[k]; !ok {
			panic(fmt.Sprintf("form: no behavior for column kind %s", k))
		}
	}
}

func behaviorFor(k schema.Kind) behavior {
	b, ok := behaviors[k]
	if !ok {
		return behaviors[schema.KindText]
	}
	return b
}

func buildText(_ schema.Column, v any, present bool) Input {
	if !present {
		return Input{}
	}
	return Input{Text: world.FormatValue(v)}
}

func buildSelect(col schema.Column, v any, present bool) Input {
	if present && v != nil {
		if text := world.FormatValue(v); text != "" {
			return Input{Text: text}
		}
	}
	if len(col.Options) > 0 {
		return Input{Text: col.Options[0]}
	}
	return Input{}
}

func buildCheckbox(_ schema.Column, v any, present bool) Input {
	return Input{Checked: present && world.Truthy(v)}
}

func readText(_ schema.Column, in Input) (any, bool, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, false, nil
	}
	return text, true, nil
}

func readSelect(col schema.Column, in Input) (any, bool, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, false, nil
	}
	if !slices.Contains(col.Options, text) {
		return nil, false, fmt.Errorf("must be one of %s", strings.Join(col.Options, ", "))
	}
	return text, true, nil
}

func readNumber(_ schema.Column, in Input) (any, bool, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, false, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false, fmt.Errorf("%q is not a number", text)
	}
	return f, true, nil
}

func readCheckbox(_ schema.Column, in Input) (any, bool, error) {
	return in.Checked, true, nil
}
