package session

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/world-editor/pkg/form"
	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/table"
	"github.com/jwebster45206/world-editor/pkg/world"
)

// SwitchTab selects tab and clears its search and sort.
func (c *Controller) SwitchTab(tab schema.Tab) error {
	if tab != schema.EntitiesTab && !c.registry.IsRelationTab(tab) {
		return fmt.Errorf("%w: %s", schema.ErrUnknownTab, tab)
	}
	c.state.Tab = tab
	c.state.Sort = table.Sort{}
	c.state.Search = ""
	return nil
}

func (c *Controller) SetSearch(term string) {
	c.state.Search = term
}

// ToggleSort handles a click on the header of col.
func (c *Controller) ToggleSort(col string) {
	c.state.Sort = c.state.Sort.Toggle(col)
}

// Table renders the active tab.
func (c *Controller) Table() (*table.View, error) {
	if c.mutator == nil {
		return nil, ErrNoWorld
	}
	return c.tables.Render(c.mutator.Document(), c.state.Tab, c.state.Search, c.state.Sort)
}

// Form returns the open form, or nil.
func (c *Controller) Form() *form.Form {
	return c.state.Form
}

// OpenRecord opens the form for the record at h in the active tab.
func (c *Controller) OpenRecord(h world.Handle) (*form.Form, error) {
	return c.open(h, false)
}

// OpenNew opens a blank form for the active tab.
func (c *Controller) OpenNew() (*form.Form, error) {
	return c.open(0, true)
}

func (c *Controller) open(h world.Handle, isNew bool) (*form.Form, error) {
	if c.mutator == nil {
		return nil, ErrNoWorld
	}
	f, err := c.forms.Open(c.mutator.Document(), c.state.Tab, h, isNew)
	if err != nil {
		return nil, err
	}
	c.state.Form = f
	return f, nil
}

func (c *Controller) CloseForm() {
	c.state.Form = nil
}

func (c *Controller) readForm(raw form.RawValues) (form.Values, error) {
	if c.mutator == nil {
		return nil, ErrNoWorld
	}
	if c.state.Form == nil {
		return nil, ErrNoForm
	}
	values, err := c.forms.ReadValues(c.state.Form, raw)
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			c.notify(verr.Error(), true)
		}
		return nil, err
	}
	return values, nil
}

// CommitForm stores the open form and closes it. On a validation error the
// form stays open and nothing changes.
func (c *Controller) CommitForm(raw form.RawValues) (world.Handle, error) {
	values, err := c.readForm(raw)
	if err != nil {
		return 0, err
	}
	h, err := c.forms.Commit(c.mutator, c.state.Form, values)
	if err != nil {
		c.logger.Error("Failed to commit record", "tab", c.state.Tab, "error", err)
		return 0, err
	}
	c.state.Form = nil
	return h, nil
}

// DuplicateForm stores a copy of the open form's values under a new id and
// reopens the form on the copy.
func (c *Controller) DuplicateForm(raw form.RawValues) (*form.Form, error) {
	values, err := c.readForm(raw)
	if err != nil {
		return nil, err
	}
	h, err := c.forms.Duplicate(c.mutator, c.state.Form, values)
	if err != nil {
		return nil, err
	}
	return c.OpenRecord(h)
}

// DeleteForm removes the open form's record after the user confirms and
// closes the form. It reports whether the record was removed.
func (c *Controller) DeleteForm() (bool, error) {
	if c.mutator == nil {
		return false, ErrNoWorld
	}
	if c.state.Form == nil {
		return false, ErrNoForm
	}
	var confirmer form.Confirmer
	if c.prompter != nil {
		confirmer = c.prompter
	}
	removed, err := c.forms.Delete(c.mutator, c.state.Form, confirmer)
	if err != nil {
		return false, err
	}
	if removed {
		c.state.Form = nil
	}
	return removed, nil
}
