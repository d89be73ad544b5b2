package notifications

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/foodshare-desk/internal/fragment"
	"github.com/nhle/foodshare-desk/internal/theme"
)

// Item wraps a fragment.Item so it can be used in a bubbles/list.
type Item struct {
	fragment.Item
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Text }

// ItemDelegate renders one notification per line.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}

	marker := " "
	if it.Unread {
		marker = theme.UnreadMarkerStyle.Render("●")
	}

	text := it.Text
	maxWidth := m.Width() - 6
	if maxWidth > 0 && lipgloss.Width(text) > maxWidth {
		text = truncate(text, maxWidth)
	}

	line := fmt.Sprintf("%s %s", marker, text)
	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}

// truncate shortens s to at most n cells, ending with an ellipsis.
func truncate(s string, n int) string {
	if n <= 1 {
		return "…"
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > n {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
