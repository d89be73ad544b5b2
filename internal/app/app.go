package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/nhle/foodshare-desk/internal/credential"
	"github.com/nhle/foodshare-desk/internal/keys"
	"github.com/nhle/foodshare-desk/internal/model"
	"github.com/nhle/foodshare-desk/internal/store"
	"github.com/nhle/foodshare-desk/internal/theme"
	"github.com/nhle/foodshare-desk/internal/ui"
	activityview "github.com/nhle/foodshare-desk/internal/ui/activity"
	"github.com/nhle/foodshare-desk/internal/ui/command"
	configview "github.com/nhle/foodshare-desk/internal/ui/config"
	helpview "github.com/nhle/foodshare-desk/internal/ui/help"
	"github.com/nhle/foodshare-desk/internal/ui/notifications"
	"github.com/nhle/foodshare-desk/internal/ui/report"
)

const (
	// toastTTL is how long a toast stays in the status bar.
	toastTTL = 4 * time.Second

	// statusRefresh redraws the header so the stale marker shows up even
	// when no poller message arrives.
	statusRefresh = 5 * time.Second
)

// toastExpiredMsg clears the toast it was scheduled for.
type toastExpiredMsg struct {
	seq int
}

// statusTickMsg triggers a header redraw.
type statusTickMsg struct{}

// loggedOutMsg is sent after stored credentials were removed.
type loggedOutMsg struct {
	err error
}

// listFailedMsg is sent when the notification list could not be loaded.
type listFailedMsg struct {
	err error
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewHome ViewState = iota
	ViewNotifications
	ViewReport
	ViewActivity
	ViewConfig
	ViewHelp
	ViewCommand
)

// Options carries the dependencies of the root model.
type Options struct {
	Config     *model.AppConfig
	ConfigPath string
	Store      store.Store
	Logger     zerolog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time

	// connect and forget override the keyring-backed defaults in tests.
	connect func(*model.AppConfig, *teaView) (*Session, error)
	forget  func(profile string) error
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the notification session.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	cfg        *model.AppConfig
	configPath string
	store      store.Store
	log        zerolog.Logger
	clock      func() time.Time
	connect    func(*model.AppConfig, *teaView) (*Session, error)
	forget     func(profile string) error

	bridge     *teaView
	session    *Session
	connectErr error

	notifications notifications.Model
	reportView    report.Model
	activityView  activityview.Model
	configView    configview.Model
	helpView      helpview.Model
	commandView   command.Model

	badge    string
	toast    string
	toastSeq int
	ready    bool
}

// New creates the root application model and connects to the configured
// server. Polling starts in Init.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	log := opts.Logger.With().Str("component", "app").Logger()

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	connect := opts.connect
	if connect == nil {
		connect = func(cfg *model.AppConfig, v *teaView) (*Session, error) {
			return Connect(cfg, v, opts.Logger)
		}
	}

	forget := opts.forget
	if forget == nil {
		forget = credential.Forget
	}

	m := Model{
		currentView:   ViewHome,
		keys:          k,
		cfg:           opts.Config,
		configPath:    opts.ConfigPath,
		store:         opts.Store,
		log:           log,
		clock:         clock,
		connect:       connect,
		forget:        forget,
		bridge:        newTeaView(log),
		notifications: notifications.New(k, 80, 24),
		reportView:    report.New(k, clock, 80, 24),
		activityView:  activityview.New(opts.Store, k, 80, 24),
		configView: configview.New(opts.Config, opts.ConfigPath, k, 80, 24,
			configview.WithProbe(Probe(opts.Logger)),
		),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}

	m.session, m.connectErr = m.connect(m.cfg, m.bridge)
	if m.connectErr != nil {
		log.Error().Err(m.connectErr).Msg("connecting to server")
	}
	return m
}

// Init starts polling, prunes old activity and subscribes to poller updates.
// Without a usable session the config view opens first.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.bridge.wait(),
		m.pruneActivity(),
		statusTick(),
	}

	if m.session == nil || !m.session.HasSession {
		cmds = append(cmds, func() tea.Msg { return openConfigMsg{} })
	}
	if m.session != nil && m.cfg.Poll.Enabled {
		m.session.Poller.Start(context.Background())
	}
	return tea.Batch(cmds...)
}

// openConfigMsg opens the config view on first run.
type openConfigMsg struct{}

func statusTick() tea.Cmd {
	return tea.Tick(statusRefresh, func(time.Time) tea.Msg { return statusTickMsg{} })
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.notifications.SetSize(w, h)
		m.reportView.SetSize(w, h)
		m.activityView.SetSize(w, h)
		m.configView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case badgeMsg:
		m.badge = msg.label
		return m, m.bridge.wait()

	case listMsg:
		cmd, err := m.notifications.SetFragment(msg.html)
		if err != nil {
			m.log.Warn().Err(err).Msg("parsing notification fragment")
		}
		return m, tea.Batch(cmd, m.bridge.wait())

	case toastMsg:
		return m, tea.Batch(m.showToast(msg.text), m.bridge.wait())

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case statusTickMsg:
		return m, statusTick()

	case openConfigMsg:
		return m, m.openView(ViewConfig)

	case loggedOutMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("removing credentials")
			return m, m.showToast("Could not remove stored credentials.")
		}
		m.reconnect(m.cfg)
		return m, m.showToast("Signed out.")

	case listFailedMsg:
		m.notifications.StopLoading()
		return m, nil

	case mutationDoneMsg:
		return m, m.recordActivity(mutationActivity(msg))

	case activityRecordedMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("recording activity")
			return m, nil
		}
		if m.currentView == ViewActivity {
			return m, m.activityView.Load()
		}
		return m, nil

	case notifications.MarkAllReadMsg:
		if m.session == nil {
			return m, nil
		}
		return m, m.markAllRead()

	case notifications.MarkReadMsg:
		if m.session == nil {
			return m, nil
		}
		return m, m.markRead(msg.ID)

	case notifications.ReloadMsg:
		return m, m.loadList()

	case notifications.CloseMsg, report.CloseMsg, activityview.CloseMsg, configview.ConfigDoneMsg:
		m.currentView = ViewHome
		return m, nil

	case report.RangeChosenMsg:
		if m.session != nil {
			m.reportView.SetResult(m.session.Client.ReportURL(msg.Start, msg.End))
		}
		return m, m.recordActivity(model.Activity{
			Kind:   model.ActivityReportRange,
			Target: rangeTarget(msg.Start, msg.End),
		})

	case configview.ConfigSavedMsg:
		m.reconnect(msg.Config)
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if !m.capturesInput() {
			if next, cmd, ok := m.handleGlobalKey(msg); ok {
				return next, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturesInput reports whether the active view takes free text, in which
// case global shortcuts are not intercepted.
func (m Model) capturesInput() bool {
	switch m.currentView {
	case ViewReport, ViewConfig, ViewCommand:
		return true
	}
	return false
}

func (m Model) handleGlobalKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		return m, m.openView(ViewHelp), true

	case key.Matches(msg, m.keys.Command):
		return m, m.openView(ViewCommand), true
	}

	if m.currentView == ViewHelp && key.Matches(msg, m.keys.Back) {
		m.currentView = m.previousView
		return m, nil, true
	}

	if m.currentView != ViewHome {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit(), true
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh(), true
	case key.Matches(msg, m.keys.Notifications):
		return m, m.openView(ViewNotifications), true
	case key.Matches(msg, m.keys.MarkAllRead):
		if m.session == nil {
			return m, nil, true
		}
		return m, m.markAllRead(), true
	case key.Matches(msg, m.keys.Report):
		return m, m.openView(ViewReport), true
	case key.Matches(msg, m.keys.Activity):
		return m, m.openView(ViewActivity), true
	case key.Matches(msg, m.keys.Config):
		return m, m.openView(ViewConfig), true
	}
	return m, nil, false
}

// openView switches to v and returns the command that prepares it.
func (m *Model) openView(v ViewState) tea.Cmd {
	if m.currentView != v {
		m.previousView = m.currentView
	}
	m.currentView = v

	switch v {
	case ViewNotifications:
		return m.loadList()
	case ViewReport:
		return m.reportView.Start()
	case ViewActivity:
		return m.activityView.Load()
	case ViewConfig:
		return m.configView.Start()
	case ViewCommand:
		return m.commandView.Focus()
	}
	return nil
}

// loadList fetches the notification fragment. The result arrives as a
// listMsg through the bridge.
func (m *Model) loadList() tea.Cmd {
	if m.session == nil {
		return nil
	}
	p := m.session.Poller
	return tea.Batch(
		m.notifications.StartLoading(),
		func() tea.Msg {
			if err := p.LoadList(context.Background()); err != nil {
				return listFailedMsg{err: err}
			}
			return nil
		},
	)
}

// refresh polls now. A stopped poller gets a single out-of-schedule tick.
func (m Model) refresh() tea.Cmd {
	if m.session == nil {
		return nil
	}
	p := m.session.Poller
	if p.Status().Running {
		p.Refresh()
		return nil
	}
	return func() tea.Msg {
		p.Tick(context.Background())
		return nil
	}
}

// showToast puts text in the status bar until toastTTL passes or another
// toast replaces it.
func (m *Model) showToast(text string) tea.Cmd {
	m.toast = text
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

// reconnect replaces the session after the configuration changed.
func (m *Model) reconnect(cfg *model.AppConfig) {
	if m.session != nil {
		m.session.Poller.Stop()
	}
	m.cfg = cfg
	m.badge = ""

	m.session, m.connectErr = m.connect(cfg, m.bridge)
	if m.connectErr != nil {
		m.log.Error().Err(m.connectErr).Msg("reconnecting to server")
		return
	}
	if cfg.Poll.Enabled {
		m.session.Poller.Start(context.Background())
	}
}

func (m Model) quit() tea.Cmd {
	if m.session != nil {
		m.session.Poller.Stop()
	}
	return tea.Quit
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewNotifications:
		m.notifications, cmd = m.notifications.Update(msg)
	case ViewReport:
		m.reportView, cmd = m.reportView.Update(msg)
	case ViewActivity:
		m.activityView, cmd = m.activityView.Update(msg)
	case ViewConfig:
		m.configView, cmd = m.configView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if kmsg, ok := msg.(tea.KeyMsg); ok && key.Matches(kmsg, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Foodshare", m.badge, m.pollStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.toast)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewNotifications:
		return m.notifications.View()
	case ViewReport:
		return m.reportView.View()
	case ViewActivity:
		return m.activityView.View()
	case ViewConfig:
		return m.configView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return m.renderHome()
	}
}

func (m Model) renderHome() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var lines []string
	lines = append(lines, titleStyle.Render("Surplus food coordination"))

	switch {
	case m.connectErr != nil:
		lines = append(lines, lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Render(fmt.Sprintf("Not connected: %v", m.connectErr)))
	case m.session != nil:
		lines = append(lines, "Server: "+m.session.Client.BaseURL())
		if !m.session.HasSession {
			lines = append(lines, theme.DimmedStyle.Render("No session cookie stored. Press c to add one."))
		}
		st := m.session.Poller.Status()
		if !st.LastPoll.IsZero() {
			lines = append(lines, fmt.Sprintf("Unread: %d  (checked %s)",
				st.LastCount, st.LastPoll.Format("15:04:05")))
		}
		if st.LastError != nil {
			lines = append(lines, theme.DimmedStyle.Render("Last check failed: "+st.LastError.Error()))
		}
	}

	lines = append(lines, "", theme.HelpStyle.Render(
		"n notifications | A mark all read | d report | h activity | c configure"))

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// pollStatus returns a short string describing the poller.
func (m Model) pollStatus() string {
	if m.session == nil {
		return "not connected"
	}
	st := m.session.Poller.Status()
	switch {
	case !st.Running:
		return "polling off"
	case st.Stale():
		return "⚠ stale"
	default:
		return "every " + formatInterval(st.Interval)
	}
}

func formatInterval(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d/time.Second))
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewNotifications:
		return "A mark all read | x/enter mark read | r reload | esc back"
	case ViewReport:
		return "enter next | esc cancel"
	case ViewActivity:
		return "j/k scroll | r reload | esc back"
	case ViewConfig:
		return "enter next | esc cancel"
	default:
		return "q quit | ? help | : command | r refresh"
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case command.CmdRefresh:
		return m.refresh()
	case command.CmdNotifications:
		return m.openView(ViewNotifications)
	case command.CmdMarkAllRead:
		if m.session == nil {
			return nil
		}
		return m.markAllRead()
	case command.CmdReport:
		return m.openView(ViewReport)
	case command.CmdActivity:
		return m.openView(ViewActivity)
	case command.CmdConfig:
		return m.openView(ViewConfig)
	case command.CmdHelp:
		return m.openView(ViewHelp)
	case command.CmdLogout:
		forget, profile := m.forget, m.cfg.Server.Profile
		return func() tea.Msg { return loggedOutMsg{err: forget(profile)} }
	case command.CmdQuit:
		return m.quit()
	default:
		return m.showToast(fmt.Sprintf("Unknown command %q", cmd))
	}
}
