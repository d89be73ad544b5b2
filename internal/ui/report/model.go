package report

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/foodshare-desk/internal/daterange"
	"github.com/nhle/foodshare-desk/internal/keys"
	"github.com/nhle/foodshare-desk/internal/theme"
)

// RangeChosenMsg is dispatched when a valid range is submitted. Zero
// times mean the bound was left empty.
type RangeChosenMsg struct {
	Start time.Time
	End   time.Time
}

// CloseMsg is dispatched when the user leaves the report view.
type CloseMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers and the date handles remain valid across Bubble Tea model copies.
type formBindings struct {
	start string
	end   string

	startIn *daterange.Input
	endIn   *daterange.Input
	form    *daterange.Form
	detach  func()
}

// Model is the report date-range picker.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	clock  func() time.Time
	keys   *keys.KeyMap
	result string
	width  int
	height int
}

// New creates a report view. A nil clock uses time.Now.
func New(k *keys.KeyMap, clock func() time.Time, width, height int) Model {
	if clock == nil {
		clock = time.Now
	}
	return Model{
		fb:     &formBindings{},
		clock:  clock,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Start resets the form and binds the validator to a fresh date pair.
func (m *Model) Start() tea.Cmd {
	if m.fb.detach != nil {
		m.fb.detach()
	}

	fb := &formBindings{
		startIn: daterange.NewInput("Start date"),
		endIn:   daterange.NewInput("End date"),
		form:    daterange.NewForm(),
	}
	_, fb.detach = daterange.Attach(fb.startIn, fb.endIn, fb.form, daterange.WithClock(m.clock))

	m.fb = fb
	m.result = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// SetResult shows the export link for the chosen range.
func (m *Model) SetResult(link string) {
	m.result = link
}

// Update handles messages for the report view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	if m.form.State == huh.StateCompleted {
		if kmsg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(kmsg, m.keys.Back), key.Matches(kmsg, m.keys.Select):
				return m, func() tea.Msg { return CloseMsg{} }
			case key.Matches(kmsg, m.keys.Report):
				return m, m.Start()
			}
		}
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CloseMsg{} }
	}

	return m, cmd
}

func (m Model) handleSubmit() (Model, tea.Cmd) {
	m.fb.startIn.SetText(m.fb.start)
	m.fb.endIn.SetText(m.fb.end)

	if !m.fb.form.Submit() {
		// The inline validators should have caught this; start over with
		// the values the user typed.
		start, end := m.fb.start, m.fb.end
		cmd := m.Start()
		m.fb.start, m.fb.end = start, end
		return m, cmd
	}

	var msg RangeChosenMsg
	if d, ok := m.fb.startIn.Date(); ok {
		msg.Start = d
	}
	if d, ok := m.fb.endIn.Date(); ok {
		msg.End = d
	}
	return m, func() tea.Msg { return msg }
}

// View renders the report view.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var body string
	if m.form.State == huh.StateCompleted {
		body = m.viewResult()
	} else {
		body = m.form.View()
	}

	content := titleStyle.Render("Export Report") + "\n" + body

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

func (m Model) viewResult() string {
	if m.result == "" {
		return theme.DimmedStyle.Render("Preparing link...")
	}

	linkStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBlue).
		Underline(true)

	return "Open this link in your browser to download the report:\n\n" +
		linkStyle.Render(m.result) + "\n\n" +
		theme.HelpStyle.Render("d new range | enter/esc back")
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	today := daterange.Midnight(m.clock()).Format(daterange.DateLayout)
	fb := m.fb

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start date").
				Description("YYYY-MM-DD, optional, no later than "+today).
				Placeholder(today).
				Value(&fb.start).
				Validate(func(s string) error {
					fb.startIn.SetText(s)
					return fieldError(fb.startIn)
				}),
			huh.NewInput().
				Title("End date").
				Description("YYYY-MM-DD, optional, on or after the start date").
				Placeholder(today).
				Value(&fb.end).
				Validate(func(s string) error {
					fb.endIn.SetText(s)
					return fieldError(fb.endIn)
				}),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

// fieldError surfaces the field's first problem as a huh validation error.
func fieldError(in *daterange.Input) error {
	if msg := in.Validity(); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}
