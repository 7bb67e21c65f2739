package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/world-editor/pkg/form"
	"github.com/jwebster45206/world-editor/pkg/schema"
	"github.com/jwebster45206/world-editor/pkg/session"
	"github.com/jwebster45206/world-editor/pkg/table"
	"github.com/jwebster45206/world-editor/pkg/world"
)

type screen int

const (
	screenPicker screen = iota
	screenTable
	screenForm
	screenMeta
)

// chrome is the number of lines around the table: title, tabs, search,
// blank, status and help.
const chrome = 7

type worldsListedMsg struct {
	names []string
	err   error
}

type worldLoadedMsg struct {
	req session.LoadRequest
	doc *world.Document
	err error
}

type worldSavedMsg struct {
	req session.SaveRequest
	err error
}

type toastExpiredMsg struct {
	seq int
}

// confirmModal asks a yes/no question. onYes runs when the user agrees.
type confirmModal struct {
	title   string
	message string
	onYes   func(ConsoleUI) (ConsoleUI, tea.Cmd)
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	dirtyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	mutedStyle = promptStyle

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("250"))

	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // teal
			Bold(true)

	selectedHeaderStyle = headerStyle.
				Underline(true)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("62"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")) // purple

	numberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	pillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("238"))

	checkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

// ConsoleUI is the BubbleTea model of the editor. All editing state lives in
// the session controller; the model keeps only view state such as the
// cursor and the open modals.
type ConsoleUI struct {
	ctrl     *session.Controller
	store    session.Store
	prompter *consolePrompter
	timeout  time.Duration
	toastFor time.Duration
	logger   *slog.Logger

	screen screen
	width  int
	height int

	worlds        []string
	selectedWorld int
	loadingWorlds bool
	busy          string

	cursor      int
	offset      int
	selectedCol int
	search      textinput.Model
	searching   bool

	editor    formEditor
	metaName  textinput.Model
	metaDesc  textarea.Model
	metaFocus int

	confirm    *confirmModal
	shownToast int
	hiddenSeq  int
}

func NewConsoleUI(ctrl *session.Controller, store session.Store, prompter *consolePrompter, timeout time.Duration, logger *slog.Logger) ConsoleUI {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search"
	search.CharLimit = 200

	return ConsoleUI{
		ctrl:          ctrl,
		store:         store,
		prompter:      prompter,
		timeout:       timeout,
		toastFor:      toastDuration,
		logger:        logger,
		screen:        screenPicker,
		loadingWorlds: true,
		search:        search,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.listWorlds()
}

func (m ConsoleUI) listWorlds() tea.Cmd {
	store, timeout := m.store, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		names, err := store.List(ctx)
		return worldsListedMsg{names: names, err: err}
	}
}

func (m ConsoleUI) fetch(req session.LoadRequest) tea.Cmd {
	store, timeout := m.store, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		doc, err := store.Fetch(ctx, req.Name)
		return worldLoadedMsg{req: req, doc: doc, err: err}
	}
}

func (m ConsoleUI) persist(req session.SaveRequest) tea.Cmd {
	store, timeout := m.store, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return worldSavedMsg{req: req, err: store.Persist(ctx, req.Name, req.Doc)}
	}
}

func expireToast(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	// A notification raised during this update gets its own expiry timer.
	if t := next.prompter.toast; t.seq != next.shownToast {
		next.shownToast = t.seq
		cmd = tea.Batch(cmd, expireToast(t.seq, next.toastFor))
	}
	return next, cmd
}

func (m ConsoleUI) update(msg tea.Msg) (ConsoleUI, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scrollToCursor()
		return m, nil

	case worldsListedMsg:
		m.loadingWorlds = false
		if msg.err != nil {
			m.logger.Error("Failed to list worlds", "error", msg.err)
			m.prompter.Notify(fmt.Sprintf("Error: %v", msg.err), true)
			return m, nil
		}
		m.worlds = msg.names
		m.selectedWorld = min(m.selectedWorld, max(len(m.worlds)-1, 0))
		return m, nil

	case worldLoadedMsg:
		if !m.ctrl.FinishLoad(msg.req, msg.doc, msg.err) {
			return m, nil
		}
		m.busy = ""
		if msg.err == nil {
			m.screen = screenTable
			m.resetTable()
		}
		return m, nil

	case worldSavedMsg:
		if m.ctrl.FinishSave(msg.req, msg.err) {
			m.busy = ""
		}
		return m, nil

	case toastExpiredMsg:
		if msg.seq == m.prompter.toast.seq {
			m.hiddenSeq = msg.seq
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		switch m.screen {
		case screenPicker:
			return m.updatePicker(msg)
		case screenForm:
			return m.updateForm(msg)
		case screenMeta:
			return m.updateMeta(msg)
		default:
			return m.updateTable(msg)
		}
	}

	// Cursor blinks and other component messages go to the focused input.
	var cmd tea.Cmd
	switch {
	case m.screen == screenTable && m.searching:
		m.search, cmd = m.search.Update(msg)
	case m.screen == screenForm:
		if f := m.editor.focusedField(); f != nil {
			cmd = f.update(msg)
		}
	case m.screen == screenMeta && m.metaFocus == 0:
		m.metaName, cmd = m.metaName.Update(msg)
	case m.screen == screenMeta:
		m.metaDesc, cmd = m.metaDesc.Update(msg)
	}
	return m, cmd
}

func (m ConsoleUI) updateConfirm(msg tea.KeyMsg) (ConsoleUI, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "y", "Y", "enter":
		c := m.confirm
		m.confirm = nil
		return c.onYes(m)
	case "n", "N", "esc":
		m.confirm = nil
	}
	return m, nil
}

func (m ConsoleUI) requestQuit() (ConsoleUI, tea.Cmd) {
	if !m.ctrl.Dirty() {
		return m, tea.Quit
	}
	m.confirm = &confirmModal{
		title:   "Quit?",
		message: fmt.Sprintf("%s has unsaved changes. Quit anyway?", m.ctrl.State().World),
		onYes: func(m ConsoleUI) (ConsoleUI, tea.Cmd) {
			return m, tea.Quit
		},
	}
	return m, nil
}

func (m ConsoleUI) updatePicker(msg tea.KeyMsg) (ConsoleUI, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m.requestQuit()
	case "esc":
		if m.ctrl.Loaded() {
			m.screen = screenTable
			return m, nil
		}
		return m.requestQuit()
	case "up", "k":
		if m.selectedWorld > 0 {
			m.selectedWorld--
		}
	case "down", "j":
		if m.selectedWorld < len(m.worlds)-1 {
			m.selectedWorld++
		}
	case "r":
		m.loadingWorlds = true
		return m, m.listWorlds()
	case "enter":
		if m.loadingWorlds || len(m.worlds) == 0 {
			return m, nil
		}
		return m.requestLoad(m.worlds[m.selectedWorld])
	}
	return m, nil
}

// requestLoad loads name, asking first when that would drop unsaved edits.
func (m ConsoleUI) requestLoad(name string) (ConsoleUI, tea.Cmd) {
	if !m.ctrl.Dirty() {
		return m.beginLoad(name)
	}
	m.confirm = &confirmModal{
		title:   "Discard changes?",
		message: fmt.Sprintf("%s has unsaved changes. Load %s anyway?", m.ctrl.State().World, name),
		onYes: func(m ConsoleUI) (ConsoleUI, tea.Cmd) {
			m.prompter.approve()
			return m.beginLoad(name)
		},
	}
	return m, nil
}

func (m ConsoleUI) beginLoad(name string) (ConsoleUI, tea.Cmd) {
	req, ok := m.ctrl.BeginLoad(name)
	if !ok {
		return m, nil
	}
	m.busy = "Loading " + name + "…"
	return m, m.fetch(req)
}

func (m ConsoleUI) beginSave() (ConsoleUI, tea.Cmd) {
	req, err := m.ctrl.BeginSave()
	if err != nil {
		m.prompter.Notify(fmt.Sprintf("Error: %v", err), true)
		return m, nil
	}
	m.busy = "Saving " + req.Name + "…"
	return m, m.persist(req)
}

func (m *ConsoleUI) resetTable() {
	m.cursor, m.offset, m.selectedCol = 0, 0, 0
	m.searching = false
	m.search.Blur()
	m.search.SetValue(m.ctrl.State().Search)
}

func (m ConsoleUI) view() *table.View {
	v, err := m.ctrl.Table()
	if err != nil {
		return nil
	}
	return v
}

func (m ConsoleUI) tableHeight() int {
	if m.height <= 0 {
		return 20
	}
	return max(m.height-chrome, 2)
}

// scrollToCursor keeps the cursor inside the visible rows.
func (m *ConsoleUI) scrollToCursor() {
	visible := max(m.tableHeight()-1, 1)
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	m.offset = max(m.offset, 0)
}

func (m *ConsoleUI) moveCursor(delta int) {
	v := m.view()
	if v == nil || len(v.Rows) == 0 {
		m.cursor, m.offset = 0, 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(v.Rows)-1)
	m.scrollToCursor()
}

func (m *ConsoleUI) selectHandle(h world.Handle) {
	v := m.view()
	if v == nil {
		return
	}
	for i, r := range v.Rows {
		if r.Handle == h {
			m.cursor = i
			m.scrollToCursor()
			return
		}
	}
}

func (m ConsoleUI) switchTab(tab schema.Tab) ConsoleUI {
	if err := m.ctrl.SwitchTab(tab); err != nil {
		m.prompter.Notify(err.Error(), true)
		return m
	}
	m.resetTable()
	return m
}

func (m ConsoleUI) stepTab(delta int) ConsoleUI {
	tabs := m.ctrl.Registry().Tabs()
	current := m.ctrl.State().Tab
	idx := 0
	for i, t := range tabs {
		if t == current {
			idx = i
		}
	}
	n := len(tabs)
	return m.switchTab(tabs[((idx+delta)%n+n)%n])
}

func (m ConsoleUI) updateTable(msg tea.KeyMsg) (ConsoleUI, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "ctrl+c":
			return m.requestQuit()
		case "esc", "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.ctrl.SetSearch(m.search.Value())
		m.cursor, m.offset = 0, 0
		return m, cmd
	}

	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return m.requestQuit()
	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.ctrl.SetSearch("")
			m.cursor, m.offset = 0, 0
		}
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-m.tableHeight())
	case "pgdown":
		m.moveCursor(m.tableHeight())
	case "home", "g":
		m.moveCursor(-m.cursor)
	case "end", "G":
		if v := m.view(); v != nil {
			m.moveCursor(len(v.Rows))
		}
	case "left", "h":
		if m.selectedCol > 0 {
			m.selectedCol--
		}
	case "right", "l":
		if v := m.view(); v != nil && m.selectedCol < len(v.Columns)-1 {
			m.selectedCol++
		}
	case "s":
		if v := m.view(); v != nil && m.selectedCol < len(v.Columns) {
			m.ctrl.ToggleSort(v.Columns[m.selectedCol].Key)
		}
	case "tab":
		return m.stepTab(1), nil
	case "shift+tab":
		return m.stepTab(-1), nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		tabs := m.ctrl.Registry().Tabs()
		if i := int(key[0] - '1'); i < len(tabs) {
			return m.switchTab(tabs[i]), nil
		}
	case "enter":
		v := m.view()
		if v == nil || m.cursor >= len(v.Rows) {
			return m, nil
		}
		f, err := m.ctrl.OpenRecord(v.Rows[m.cursor].Handle)
		if err != nil {
			m.prompter.Notify(fmt.Sprintf("Error: %v", err), true)
			return m, nil
		}
		return m.showForm(f)
	case "n":
		f, err := m.ctrl.OpenNew()
		if err != nil {
			m.prompter.Notify(fmt.Sprintf("Error: %v", err), true)
			return m, nil
		}
		return m.showForm(f)
	case "m":
		return m.showMeta()
	case "o":
		m.screen = screenPicker
		m.loadingWorlds = true
		return m, m.listWorlds()
	case "ctrl+s":
		return m.beginSave()
	case "ctrl+e", "x":
		// The controller reports export failures itself.
		if err := m.ctrl.Export(); errors.Is(err, session.ErrNoWorld) {
			m.prompter.Notify("Open a world before exporting", true)
		}
	}
	return m, nil
}

func (m ConsoleUI) formWidth() int {
	if m.width <= 0 {
		return 60
	}
	return min(max(m.width-24, 30), 80)
}

func (m ConsoleUI) showForm(f *form.Form) (ConsoleUI, tea.Cmd) {
	var cmd tea.Cmd
	m.editor, cmd = newFormEditor(f, m.formWidth())
	m.screen = screenForm
	return m, cmd
}

func (m ConsoleUI) closeForm() ConsoleUI {
	m.ctrl.CloseForm()
	m.editor = formEditor{}
	m.screen = screenTable
	return m
}

// formFailed records field errors on the editor. Other errors are shown as
// a notification since the controller only reports validation failures.
func (m *ConsoleUI) formFailed(err error) {
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		m.editor.setErrors(verr)
		return
	}
	m.prompter.Notify(fmt.Sprintf("Error: %v", err), true)
}

func (m ConsoleUI) updateForm(msg tea.KeyMsg) (ConsoleUI, tea.Cmd) {
	field := m.editor.focusedField()
	inArea := field != nil && field.field.Widget == form.WidgetTextarea

	switch msg.String() {
	case "ctrl+c":
		return m.requestQuit()
	case "esc":
		return m.closeForm(), nil
	case "tab":
		cmd := m.editor.move(1)
		return m, cmd
	case "shift+tab":
		cmd := m.editor.move(-1)
		return m, cmd
	case "down":
		if !inArea {
			cmd := m.editor.move(1)
			return m, cmd
		}
	case "up":
		if !inArea {
			cmd := m.editor.move(-1)
			return m, cmd
		}
	case "enter":
		if !inArea {
			cmd := m.editor.move(1)
			return m, cmd
		}
	case "ctrl+s":
		h, err := m.ctrl.CommitForm(m.editor.raw())
		if err != nil {
			m.formFailed(err)
			return m, nil
		}
		m = m.closeForm()
		m.selectHandle(h)
		return m, nil
	case "ctrl+d":
		f, err := m.ctrl.DuplicateForm(m.editor.raw())
		if err != nil {
			m.formFailed(err)
			return m, nil
		}
		m.prompter.Notify("Duplicated as "+f.Title, false)
		return m.showForm(f)
	case "ctrl+x":
		if m.editor.form.IsNew {
			return m, nil
		}
		m.confirm = &confirmModal{
			title:   "Delete record?",
			message: fmt.Sprintf("Delete %s? This cannot be undone.", m.editor.form.Title),
			onYes: func(m ConsoleUI) (ConsoleUI, tea.Cmd) {
				m.prompter.approve()
				removed, err := m.ctrl.DeleteForm()
				if err != nil {
					m.formFailed(err)
					return m, nil
				}
				if removed {
					m.editor = formEditor{}
					m.screen = screenTable
					m.moveCursor(0)
				}
				return m, nil
			},
		}
		return m, nil
	}

	if field == nil {
		return m, nil
	}
	return m, field.update(msg)
}

func (m ConsoleUI) showMeta() (ConsoleUI, tea.Cmd) {
	doc := m.ctrl.Document()
	if doc == nil {
		return m, nil
	}
	name := textinput.New()
	name.Prompt = ""
	name.CharLimit = 200
	name.SetValue(doc.Name)

	desc := textarea.New()
	desc.ShowLineNumbers = false
	desc.Prompt = ""
	desc.SetWidth(m.formWidth())
	desc.SetHeight(4)
	desc.SetValue(doc.Description)
	desc.Blur()

	m.metaName, m.metaDesc, m.metaFocus = name, desc, 0
	m.screen = screenMeta
	cmd := m.metaName.Focus()
	return m, cmd
}

func (m ConsoleUI) updateMeta(msg tea.KeyMsg) (ConsoleUI, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.requestQuit()
	case "esc":
		m.screen = screenTable
		return m, nil
	case "tab", "shift+tab":
		if m.metaFocus == 0 {
			m.metaFocus = 1
			m.metaName.Blur()
			cmd := m.metaDesc.Focus()
			return m, cmd
		}
		m.metaFocus = 0
		m.metaDesc.Blur()
		cmd := m.metaName.Focus()
		return m, cmd
	case "ctrl+s":
		name := strings.TrimSpace(m.metaName.Value())
		if err := m.ctrl.SetWorldMeta(name, m.metaDesc.Value()); err != nil {
			m.prompter.Notify(fmt.Sprintf("Error: %v", err), true)
			return m, nil
		}
		m.screen = screenTable
		return m, nil
	}

	var cmd tea.Cmd
	if m.metaFocus == 0 {
		m.metaName, cmd = m.metaName.Update(msg)
	} else {
		m.metaDesc, cmd = m.metaDesc.Update(msg)
	}
	return m, cmd
}

func (m ConsoleUI) place(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderConfirm() string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render(m.confirm.title))
	b.WriteString("\n\n")
	b.WriteString(m.confirm.message)
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render("Press Y to confirm, N to cancel"))
	return m.place(modalStyle.Width(50).Render(b.String()))
}

func (m ConsoleUI) renderPicker() string {
	var b strings.Builder
	switch {
	case m.busy != "":
		b.WriteString(modalTitleStyle.Render("Opening World"))
		b.WriteString("\n\n")
		b.WriteString(loadingStyle.Render(m.busy))
	case m.loadingWorlds:
		b.WriteString(modalTitleStyle.Render("Loading Worlds..."))
		b.WriteString("\n\n")
		b.WriteString(loadingStyle.Render("Fetching the list of stored worlds..."))
	case len(m.worlds) == 0:
		b.WriteString(modalTitleStyle.Render("No Worlds"))
		b.WriteString("\n\n")
		b.WriteString("The world store has no worlds yet.")
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("R to refresh, Q to exit"))
	default:
		b.WriteString(modalTitleStyle.Render("Select a World"))
		b.WriteString("\n\n")
		for i, name := range m.worlds {
			if i == m.selectedWorld {
				b.WriteString(modalSelectedItemStyle.Render("▶ " + name))
			} else {
				b.WriteString(modalItemStyle.Render("  " + name))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("↑/↓ navigate · Enter open · R refresh · Q exit"))
	}
	if line := m.renderToast(); line != "" {
		b.WriteString("\n\n" + line)
	}
	return m.place(modalStyle.Width(60).Render(b.String()))
}

func (m ConsoleUI) renderToast() string {
	t := m.prompter.toast
	if t.seq == 0 || t.seq == m.hiddenSeq {
		return ""
	}
	if t.isError {
		return errorStyle.Render(t.message)
	}
	return successStyle.Render(t.message)
}

func (m ConsoleUI) renderMeta() string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("World"))
	b.WriteString("\n\n")
	nameLabel, descLabel := focusedLabelStyle.Render("Name"), labelStyle.Render("Description")
	if m.metaFocus == 1 {
		nameLabel, descLabel = labelStyle.Render("Name"), focusedLabelStyle.Render("Description")
	}
	b.WriteString(nameLabel + "\n" + m.metaName.View() + "\n\n")
	b.WriteString(descLabel + "\n" + m.metaDesc.View() + "\n\n")
	b.WriteString(promptStyle.Render("Tab switch · Ctrl+S apply · Esc cancel"))
	return m.place(modalStyle.Render(b.String()))
}

func (m ConsoleUI) renderMain() string {
	state := m.ctrl.State()
	doc := m.ctrl.Document()

	var b strings.Builder
	title := titleStyle.Render("WORLD EDITOR")
	if doc != nil {
		title += "  " + doc.Name
	}
	if state.Dirty {
		title += "  " + dirtyStyle.Render("● unsaved")
	}
	if m.busy != "" {
		title += "  " + loadingStyle.Render(m.busy)
	}
	b.WriteString(title + "\n")
	b.WriteString(renderTabs(m.ctrl.Registry().Tabs(), state.Tab) + "\n")

	v := m.view()
	if m.searching || state.Search != "" {
		b.WriteString(m.search.View())
	} else {
		b.WriteString(mutedStyle.Render("/ search"))
	}
	if v != nil && v.Search != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d of %d", len(v.Rows), v.Total)))
	}
	b.WriteString("\n\n")

	if v != nil {
		b.WriteString(renderTable(v, m.width-2, m.tableHeight(), m.offset, m.cursor, m.selectedCol))
	}
	b.WriteString("\n")
	b.WriteString(m.renderToast() + "\n")
	b.WriteString(promptStyle.Render("↑↓ row · ←→ column · S sort · Tab/1-9 tab · Enter edit · N new · M world · Ctrl+S save · X export · O open · Q quit"))
	return b.String()
}

func (m ConsoleUI) View() string {
	if m.confirm != nil {
		return m.renderConfirm()
	}
	switch m.screen {
	case screenPicker:
		return m.renderPicker()
	case screenForm:
		body := m.editor.view(m.formWidth())
		if line := m.renderToast(); line != "" {
			body += "\n\n" + line
		}
		return m.place(modalStyle.Render(body))
	case screenMeta:
		return m.renderMeta()
	default:
		return m.renderMain()
	}
}
