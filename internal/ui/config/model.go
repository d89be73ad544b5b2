package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/foodshare-desk/internal/credential"
	"github.com/nhle/foodshare-desk/internal/keys"
	"github.com/nhle/foodshare-desk/internal/model"
	"github.com/nhle/foodshare-desk/internal/theme"
)

// probeTimeout bounds the connection test run before saving.
const probeTimeout = 15 * time.Second

// ConfigMode represents the current state of the configuration view.
type ConfigMode int

const (
	ModeForm           ConfigMode = iota // Editing server settings
	ModeValidating                       // Testing connection
	ModeValidateResult                   // Show validation result
)

// ConfigDoneMsg signals the config view should close and return to the main app.
type ConfigDoneMsg struct{}

// ConfigSavedMsg is dispatched after settings and credentials were written.
type ConfigSavedMsg struct {
	Config *model.AppConfig
}

// ValidateResultMsg carries the result of a failed save attempt.
type ValidateResultMsg struct {
	Err error
}

// savedInternalMsg is sent after the configuration is persisted.
type savedInternalMsg struct {
	cfg *model.AppConfig
}

// Secrets are the credentials entered in the form. Empty values leave the
// stored credential alone.
type Secrets struct {
	Session string
	CSRF    string
}

// Probe checks that the server answers with the given settings.
type Probe func(ctx context.Context, srv model.ServerConfig, secrets Secrets) error

// Option configures the config view.
type Option func(*Model)

// WithProbe tests the connection before anything is saved.
func WithProbe(p Probe) Option {
	return func(m *Model) { m.probe = p }
}

func withSetSecret(fn func(key, value string) error) Option {
	return func(m *Model) { m.setSecret = fn }
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	baseURL     string
	profile     string
	session     string
	csrf        string
	pollEnabled bool
}

// Model is the Bubble Tea model for the server configuration UI.
type Model struct {
	mode ConfigMode
	cfg  *model.AppConfig
	path string

	form *huh.Form
	fb   *formBindings

	probe     Probe
	setSecret func(key, value string) error

	validError error
	spinner    spinner.Model

	keys          *keys.KeyMap
	width, height int
}

// New creates a configuration view editing cfg, saved to path.
func New(cfg *model.AppConfig, path string, k *keys.KeyMap, width, height int, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		mode:      ModeForm,
		cfg:       cfg,
		path:      path,
		fb:        &formBindings{},
		setSecret: credential.Set,
		spinner:   sp,
		keys:      k,
		width:     width,
		height:    height,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Start fills the form from the current configuration. Credentials are
// never pre-filled.
func (m *Model) Start() tea.Cmd {
	m.fb = &formBindings{
		baseURL:     m.cfg.Server.BaseURL,
		profile:     m.cfg.Server.Profile,
		pollEnabled: m.cfg.Poll.Enabled,
	}
	m.mode = ModeForm
	m.validError = nil
	m.form = m.buildForm()
	return m.form.Init()
}

// Mode returns the current mode.
func (m Model) Mode() ConfigMode {
	return m.mode
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case savedInternalMsg:
		m.cfg = msg.cfg
		m.validError = nil
		m.mode = ModeValidateResult
		cfg := msg.cfg
		return m, func() tea.Msg { return ConfigSavedMsg{Config: cfg} }

	case ValidateResultMsg:
		m.validError = msg.Err
		m.mode = ModeValidateResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			// Only allow escape during validation
			if key.Matches(msg, m.keys.Back) {
				m.mode = ModeForm
				m.form = m.buildForm()
				return m, m.form.Init()
			}
			return m, nil
		case ModeValidateResult:
			return m.handleValidateResultKeys(msg)
		}
	}

	return m.updateForm(msg)
}

func (m Model) handleValidateResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select), key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return ConfigDoneMsg{} }
	case msg.String() == "r":
		if m.validError != nil {
			// Keep what the user typed.
			m.mode = ModeForm
			m.validError = nil
			m.form = m.buildForm()
			return m, m.form.Init()
		}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.mode != ModeForm {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.submit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return ConfigDoneMsg{} }
	}

	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	next := *m.cfg
	next.Server.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	next.Server.Profile = strings.TrimSpace(m.fb.profile)
	next.Poll.Enabled = m.fb.pollEnabled

	secrets := Secrets{
		Session: strings.TrimSpace(m.fb.session),
		CSRF:    strings.TrimSpace(m.fb.csrf),
	}

	m.mode = ModeValidating
	return m, tea.Batch(
		m.spinner.Tick,
		m.validateAndSave(&next, secrets),
	)
}

// validateAndSave probes the server, then stores the credentials and writes
// the configuration file.
func (m Model) validateAndSave(cfg *model.AppConfig, secrets Secrets) tea.Cmd {
	probe, setSecret, path := m.probe, m.setSecret, m.path
	return func() tea.Msg {
		if probe != nil {
			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			defer cancel()
			if err := probe(ctx, cfg.Server, secrets); err != nil {
				return ValidateResultMsg{Err: err}
			}
		}

		if secrets.Session != "" {
			if err := setSecret(credential.SessionKey(cfg.Server.Profile), secrets.Session); err != nil {
				return ValidateResultMsg{Err: fmt.Errorf("saving session credential: %w", err)}
			}
		}
		if secrets.CSRF != "" {
			if err := setSecret(credential.CSRFKey(cfg.Server.Profile), secrets.CSRF); err != nil {
				return ValidateResultMsg{Err: fmt.Errorf("saving csrf credential: %w", err)}
			}
		}

		if err := model.SaveConfig(path, cfg); err != nil {
			return ValidateResultMsg{Err: fmt.Errorf("connection OK but save failed: %w", err)}
		}
		return savedInternalMsg{cfg: cfg}
	}
}

func (m *Model) buildForm() *huh.Form {
	fb := m.fb
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Coordination server root (e.g., https://foodshare.example.org)").
				Placeholder("https://foodshare.example.org").
				Value(&fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Profile").
				Description("Name of the credential set in the system keyring").
				Placeholder("default").
				Value(&fb.profile).
				Validate(validateRequired("Profile")),
			huh.NewInput().
				Title("Session cookie").
				Description(fmt.Sprintf("Value of the %q cookie; leave empty to keep the stored one", m.cfg.Server.SessionCookie)).
				EchoMode(huh.EchoModePassword).
				Value(&fb.session),
			huh.NewInput().
				Title("CSRF token").
				Description("Optional; the server's cookie is used when empty").
				EchoMode(huh.EchoModePassword).
				Value(&fb.csrf),
			huh.NewConfirm().
				Title("Poll for notifications").
				Affirmative("Yes").
				Negative("No").
				Value(&fb.pollEnabled),
		),
	).WithWidth(m.formWidth())
}

// View renders the configuration UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		return m.viewForm()
	case ModeValidating:
		return m.viewValidating()
	case ModeValidateResult:
		return m.viewValidateResult()
	default:
		return ""
	}
}

func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Server Configuration") + "\n" + m.form.View()
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m Model) viewValidating() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Testing connection...\n\nPress esc to cancel.",
		m.spinner.View(),
	)
	return style.Render(content)
}

func (m Model) viewValidateResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	hint := lipgloss.NewStyle().Foreground(theme.ColorGray)

	var content string
	if m.validError != nil {
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		content = errStyle.Render("Connection failed") + "\n\n" +
			m.validError.Error() + "\n\n" +
			hint.Render("r edit again | enter/esc back")
	} else {
		okStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorGreen)
		content = okStyle.Render("Settings saved") + "\n\n" +
			m.cfg.Server.BaseURL + "\n\n" +
			hint.Render("enter/esc back")
	}

	return style.Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
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

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}
