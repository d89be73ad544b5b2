package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/foodshare-desk/internal/notify"
)

// viewBuffer is how many poller updates may queue before new ones are dropped.
const viewBuffer = 32

// badgeMsg updates the unread badge. An empty label hides it.
type badgeMsg struct {
	label string
}

// listMsg carries a freshly fetched notification fragment.
type listMsg struct {
	html string
}

// toastMsg shows a transient status-bar message.
type toastMsg struct {
	text string
}

// teaView implements notify.View by forwarding every call to the Bubble Tea
// runtime as a message. The poller calls it from its own goroutines.
type teaView struct {
	ch  chan tea.Msg
	log zerolog.Logger
}

var _ notify.View = (*teaView)(nil)

func newTeaView(log zerolog.Logger) *teaView {
	return &teaView{
		ch:  make(chan tea.Msg, viewBuffer),
		log: log,
	}
}

func (v *teaView) ShowCount(label string)     { v.send(badgeMsg{label: label}) }
func (v *teaView) HideCount()                 { v.send(badgeMsg{}) }
func (v *teaView) RenderList(fragment string) { v.send(listMsg{html: fragment}) }
func (v *teaView) Toast(message string)       { v.send(toastMsg{text: message}) }

// send never blocks so a poller is never stuck behind a UI that has quit.
func (v *teaView) send(msg tea.Msg) {
	select {
	case v.ch <- msg:
	default:
		v.log.Warn().Msgf("dropping %T, view queue full", msg)
	}
}

// wait returns a command that delivers the next forwarded message. It must
// be re-armed after every delivery.
func (v *teaView) wait() tea.Cmd {
	return func() tea.Msg {
		return <-v.ch
	}
}
