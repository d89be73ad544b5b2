package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/foodshare-desk/internal/theme"
)

// Palette commands.
const (
	CmdRefresh       = "refresh"
	CmdNotifications = "notifications"
	CmdMarkAllRead   = "mark-all-read"
	CmdReport        = "report"
	CmdActivity      = "activity"
	CmdConfig        = "config"
	CmdHelp          = "help"
	CmdLogout        = "logout"
	CmdQuit          = "quit"
)

// Commands lists every command the palette completes.
var Commands = []string{
	CmdRefresh,
	CmdNotifications,
	CmdMarkAllRead,
	CmdReport,
	CmdActivity,
	CmdConfig,
	CmdHelp,
	CmdLogout,
	CmdQuit,
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Commands)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			cmd := Resolve(m.input.Value())
			m.input.Reset()
			if cmd != "" {
				return m, func() tea.Msg {
					return CommandMsg(cmd)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Resolve maps typed input to a command. A unique prefix is enough; unknown
// input is returned as typed so the caller can report it.
func Resolve(input string) string {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return ""
	}

	match := ""
	for _, c := range Commands {
		if c == in {
			return c
		}
		if strings.HasPrefix(c, in) {
			if match != "" {
				return in
			}
			match = c
		}
	}
	if match == "" {
		return in
	}
	return match
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	input := m.input.View()
	hint := theme.DimmedStyle.Render(strings.Join(Commands, "  "))

	content := lipgloss.JoinVertical(lipgloss.Left, title, input, "", hint)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
