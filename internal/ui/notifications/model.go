package notifications

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/foodshare-desk/internal/fragment"
	"github.com/nhle/foodshare-desk/internal/keys"
	"github.com/nhle/foodshare-desk/internal/theme"
)

// MarkAllReadMsg asks the app to mark every notification read.
type MarkAllReadMsg struct{}

// MarkReadMsg asks the app to mark one notification read.
type MarkReadMsg struct {
	ID string
}

// ReloadMsg asks the app to fetch the list again.
type ReloadMsg struct{}

// CloseMsg signals the panel should close.
type CloseMsg struct{}

// Model is the notification panel.
type Model struct {
	list    list.Model
	spinner spinner.Model
	keys    *keys.KeyMap
	loading bool
	loaded  bool
	notes   []string
	width   int
	height  int
}

// New creates an empty notification panel.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.KeyMap.Quit.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		list:    l,
		spinner: sp,
		keys:    k,
		width:   width,
		height:  height,
	}
}

// StartLoading shows the spinner until the next SetFragment or StopLoading.
func (m *Model) StartLoading() tea.Cmd {
	m.loading = true
	return m.spinner.Tick
}

// StopLoading hides the spinner and keeps whatever was shown before.
func (m *Model) StopLoading() {
	m.loading = false
}

// Loading reports whether a list fetch is in progress.
func (m Model) Loading() bool { return m.loading }

// SetFragment replaces the list with the items found in raw.
func (m *Model) SetFragment(raw string) (tea.Cmd, error) {
	m.loading = false

	f, err := fragment.Parse(raw)
	if err != nil {
		return nil, err
	}

	items := make([]list.Item, len(f.Items))
	for i, it := range f.Items {
		items[i] = Item{Item: it}
	}
	m.notes = f.Notes
	m.loaded = true
	m.list.Title = fmt.Sprintf("Notifications (%d unread)", f.UnreadCount())
	return m.list.SetItems(items), nil
}

// SelectedID returns the ID of the highlighted notification.
func (m Model) SelectedID() (string, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok || it.ID == "" {
		return "", false
	}
	return it.ID, true
}

// Len returns the number of listed notifications.
func (m Model) Len() int { return len(m.list.Items()) }

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return CloseMsg{} }

		case key.Matches(msg, m.keys.MarkAllRead):
			return m, func() tea.Msg { return MarkAllReadMsg{} }

		case key.Matches(msg, m.keys.MarkRead):
			id, ok := m.SelectedID()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return MarkReadMsg{ID: id} }

		case key.Matches(msg, m.keys.Refresh):
			return m, func() tea.Msg { return ReloadMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m Model) View() string {
	if m.loading && !m.loaded {
		return lipgloss.NewStyle().
			Padding(1, 2).
			Width(m.width).
			Height(m.height).
			Render(m.spinner.View() + " Loading notifications...")
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	view := m.list.View()
	if m.loading {
		view = lipgloss.JoinVertical(lipgloss.Left, m.spinner.View()+" refreshing", view)
	}
	return view
}

// renderEmptyState shows the server's placeholder text, if any.
func (m Model) renderEmptyState() string {
	text := "No notifications."
	if !m.loaded {
		text = "Notifications have not been loaded.\nPress r to try again."
	} else if len(m.notes) > 0 {
		text = strings.Join(m.notes, "\n")
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
