package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/foodshare-desk/internal/keys"
	"github.com/nhle/foodshare-desk/internal/model"
	"github.com/nhle/foodshare-desk/internal/store"
	"github.com/nhle/foodshare-desk/internal/theme"
)

// historyLimit is how many entries the view loads.
const historyLimit = 200

// LoadedMsg carries activity entries read from the store.
type LoadedMsg struct {
	Entries []model.Activity
	Err     error
}

// CloseMsg signals the view should close.
type CloseMsg struct{}

// Model shows the local activity log.
type Model struct {
	viewport viewport.Model
	store    store.Store
	keys     *keys.KeyMap
	entries  []model.Activity
	err      error
	width    int
	height   int
}

// New creates an activity view reading from s.
func New(s store.Store, k *keys.KeyMap, width, height int) Model {
	return Model{
		viewport: viewport.New(width, height-2),
		store:    s,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init loads the most recent entries.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load returns a command that reads the activity log.
func (m Model) Load() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		entries, err := s.RecentActivity(context.Background(), store.ActivityFilter{
			Limit: historyLimit,
		})
		return LoadedMsg{Entries: entries, Err: err}
	}
}

// Update handles messages for the activity view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.entries = msg.Entries
		m.err = msg.Err
		m.viewport.SetContent(m.renderEntries())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return CloseMsg{} }
		case key.Matches(msg, m.keys.Refresh):
			return m, m.Load()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the activity log.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	title := titleStyle.Render(fmt.Sprintf("Activity (%d)", len(m.entries)))
	return lipgloss.JoinVertical(lipgloss.Left, title, "", m.viewport.View())
}

func (m Model) renderEntries() string {
	if m.err != nil {
		return lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Render(fmt.Sprintf("Error loading activity: %v", m.err))
	}
	if len(m.entries) == 0 {
		return lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("Nothing yet. Actions you take from this client show up here.")
	}

	var b strings.Builder
	for _, a := range m.entries {
		b.WriteString(renderEntry(a))
		b.WriteString("\n")
	}
	return b.String()
}

func renderEntry(a model.Activity) string {
	when := theme.DimmedStyle.Render(a.CreatedAt.Format("Jan 02 15:04"))
	kind := theme.ActivityKindStyle(string(a.Kind)).Render(kindLabel(a.Kind))
	outcome := theme.OutcomeStyle(a.Outcome).Render(a.Outcome)

	line := fmt.Sprintf("%s %s %s", when, kind, outcome)
	if a.Target != "" {
		line += " " + a.Target
	}
	if a.Message != "" {
		line += theme.DimmedStyle.Render("  " + a.Message)
	}
	return line
}

func kindLabel(k model.ActivityKind) string {
	switch k {
	case model.ActivityMarkAllRead:
		return "mark all read"
	case model.ActivityMarkRead:
		return "mark read"
	case model.ActivityReportRange:
		return "report"
	default:
		return string(k)
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}
