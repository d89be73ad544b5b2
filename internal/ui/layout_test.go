package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestContentHeight(t *testing.T) {
	l := NewLayout(80, 24)
	assert.Equal(t, 22, l.ContentHeight())
	assert.Equal(t, 80, l.ContentWidth())
}

func TestRenderHeader_Badge(t *testing.T) {
	l := NewLayout(80, 24)

	withBadge := l.RenderHeader("Foodshare", "12", "every 60s")
	assert.Contains(t, withBadge, "12")
	assert.Contains(t, withBadge, "every 60s")
	assert.GreaterOrEqual(t, lipgloss.Width(withBadge), 80)

	without := l.RenderHeader("Foodshare", "", "every 60s")
	assert.NotContains(t, without, "12")
}

func TestRenderStatusBar_Toast(t *testing.T) {
	l := NewLayout(80, 24)

	bar := l.RenderStatusBar("? help", "Processing...")
	assert.Contains(t, bar, "Processing...")
	assert.GreaterOrEqual(t, lipgloss.Width(bar), 80)
}
