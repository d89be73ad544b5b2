package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/foodshare-desk/internal/foodshare"
	"github.com/nhle/foodshare-desk/internal/mockserver"
	"github.com/nhle/foodshare-desk/internal/model"
	"github.com/nhle/foodshare-desk/internal/notify"
	"github.com/nhle/foodshare-desk/internal/store"
	"github.com/nhle/foodshare-desk/internal/testutil"
	activityview "github.com/nhle/foodshare-desk/internal/ui/activity"
	"github.com/nhle/foodshare-desk/internal/ui/command"
	configview "github.com/nhle/foodshare-desk/internal/ui/config"
	"github.com/nhle/foodshare-desk/internal/ui/report"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(baseURL string) *model.AppConfig {
	return &model.AppConfig{
		Server: model.ServerConfig{
			BaseURL:       baseURL,
			Profile:       "test",
			SessionCookie: "sessionid",
			CSRFCookie:    "csrftoken",
			TimeoutSec:    5,
		},
	}
}

func staticLookup(value string) secretLookup {
	return func(string) (string, error) {
		if value == "" {
			return "", errors.New("not found")
		}
		return value, nil
	}
}

// newTestApp wires the root model to a mock server and an in-memory store.
func newTestApp(t *testing.T) (Model, *mockserver.Server, store.Store) {
	t.Helper()

	mock := mockserver.New()
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	s := testutil.NewTestStore(t)
	m := New(Options{
		Config: testConfig(srv.URL),
		Store:  s,
		Logger: zerolog.Nop(),
		connect: func(cfg *model.AppConfig, v *teaView) (*Session, error) {
			return connect(cfg, v, zerolog.Nop(), staticLookup("s3ss"))
		},
	})
	t.Cleanup(func() { m.session.Poller.Stop() })

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(Model), mock, s
}

// deliver feeds every queued bridge message into the model.
func deliver(t *testing.T, m Model) Model {
	t.Helper()
	for {
		select {
		case msg := <-m.bridge.ch:
			next, _ := m.Update(msg)
			m = next.(Model)
		default:
			return m
		}
	}
}

func TestTeaView_ForwardsCalls(t *testing.T) {
	v := newTeaView(zerolog.Nop())

	v.ShowCount("3")
	v.HideCount()
	v.RenderList("<li>x</li>")
	v.Toast("hi")

	assert.Equal(t, badgeMsg{label: "3"}, v.wait()())
	assert.Equal(t, badgeMsg{}, v.wait()())
	assert.Equal(t, listMsg{html: "<li>x</li>"}, v.wait()())
	assert.Equal(t, toastMsg{text: "hi"}, v.wait()())
}

func TestTeaView_DropsWhenFull(t *testing.T) {
	v := newTeaView(zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < viewBuffer+10; i++ {
			v.Toast("spam")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send blocked on a full queue")
	}
	assert.Len(t, v.ch, viewBuffer)
}

func TestToastExpiry(t *testing.T) {
	m, _, _ := newTestApp(t)

	next, cmd := m.Update(toastMsg{text: "first"})
	m = next.(Model)
	require.NotNil(t, cmd)
	firstSeq := m.toastSeq
	assert.Equal(t, "first", m.toast)

	next, _ = m.Update(toastMsg{text: "second"})
	m = next.(Model)

	next, _ = m.Update(toastExpiredMsg{seq: firstSeq})
	m = next.(Model)
	assert.Equal(t, "second", m.toast, "an older timer does not clear a newer toast")

	next, _ = m.Update(toastExpiredMsg{seq: m.toastSeq})
	m = next.(Model)
	assert.Empty(t, m.toast)
}

func TestHeaderShowsBadgeAndPollStatus(t *testing.T) {
	m, mock, _ := newTestApp(t)
	mock.Seed(3)

	assert.Contains(t, m.View(), "polling off")

	m.session.Poller.Tick(context.Background())
	m = deliver(t, m)

	assert.Equal(t, "3", m.badge)
	view := m.View()
	assert.Contains(t, view, "Foodshare")
	assert.Contains(t, view, "3")
}

func TestPollStatus(t *testing.T) {
	m, mock, _ := newTestApp(t)

	m.session.Poller.Start(context.Background())
	require.Eventually(t, func() bool {
		return !m.session.Poller.Status().LastPoll.IsZero()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "every 60s", m.pollStatus())

	mock.FailWith(http.StatusInternalServerError, "")
	m.session.Poller.Refresh()
	require.Eventually(t, func() bool {
		return m.session.Poller.Status().Stale()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "⚠ stale", m.pollStatus())

	m.session.Poller.Stop()
	assert.Equal(t, "polling off", m.pollStatus())

	m.session = nil
	assert.Equal(t, "not connected", m.pollStatus())
}

func TestMarkAllReadRecordsActivity(t *testing.T) {
	m, mock, s := newTestApp(t)
	mock.Seed(2)

	// The first request makes the server issue its CSRF cookie.
	m.session.Poller.Tick(context.Background())

	msg := m.markAllRead()()
	done, ok := msg.(mutationDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Zero(t, mock.Unread())

	m = deliver(t, m)
	assert.Equal(t, "Marked 2 notifications as read.", m.toast)
	assert.Empty(t, m.badge)

	next, cmd := m.Update(done)
	m = next.(Model)
	require.NotNil(t, cmd)
	recorded, ok := cmd().(activityRecordedMsg)
	require.True(t, ok)
	require.NoError(t, recorded.err)

	entries, err := s.RecentActivity(context.Background(), store.ActivityFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActivityMarkAllRead, entries[0].Kind)
	assert.Equal(t, model.OutcomeOK, entries[0].Outcome)
}

func TestMarkReadFailureRecordsServerMessage(t *testing.T) {
	m, _, s := newTestApp(t)
	m.session.Poller.Tick(context.Background())

	done := m.markRead("missing")().(mutationDoneMsg)
	require.Error(t, done.err)

	next, cmd := m.Update(done)
	m = next.(Model)
	cmd()

	entries, err := s.RecentActivity(context.Background(), store.ActivityFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.OutcomeFailed, entries[0].Outcome)
	assert.Equal(t, "missing", entries[0].Target)
	assert.Equal(t, "Notification not found.", entries[0].Message)

	m = deliver(t, m)
	assert.Equal(t, "Notification not found.", m.toast)
}

func TestReportRangeShowsLink(t *testing.T) {
	m, _, s := newTestApp(t)

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2026, 6, 10, 0, 0, 0, 0, time.Local)

	m.openView(ViewReport)
	next, cmd := m.Update(report.RangeChosenMsg{Start: start, End: end})
	m = next.(Model)
	require.NotNil(t, cmd)
	cmd()

	entries, err := s.RecentActivity(context.Background(), store.ActivityFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActivityReportRange, entries[0].Kind)
	assert.Equal(t, "2026-06-01..2026-06-10", entries[0].Target)
}

func TestUnknownCommandToasts(t *testing.T) {
	m, _, _ := newTestApp(t)

	next, cmd := m.Update(command.CommandMsg("launch"))
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Equal(t, `Unknown command "launch"`, m.toast)
}

func TestCommandOpensView(t *testing.T) {
	m, _, _ := newTestApp(t)

	next, _ := m.Update(command.CommandMsg(command.CmdActivity))
	m = next.(Model)
	assert.Equal(t, ViewActivity, m.currentView)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, activityview.CloseMsg{}, cmd())
}

func TestLogoutForgetsAndReconnects(t *testing.T) {
	mock := mockserver.New()
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	stored := "s3ss"
	var forgotten string
	m := New(Options{
		Config: testConfig(srv.URL),
		Logger: zerolog.Nop(),
		connect: func(cfg *model.AppConfig, v *teaView) (*Session, error) {
			return connect(cfg, v, zerolog.Nop(), staticLookup(stored))
		},
		forget: func(profile string) error {
			forgotten = profile
			stored = ""
			return nil
		},
	})
	require.True(t, m.session.HasSession)

	next, cmd := m.Update(command.CommandMsg(command.CmdLogout))
	m = next.(Model)
	require.NotNil(t, cmd)

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "test", forgotten)
	assert.False(t, m.session.HasSession)
	assert.Equal(t, "Signed out.", m.toast)
}

func TestConfigSavedReconnects(t *testing.T) {
	m, _, _ := newTestApp(t)
	old := m.session

	mock := mockserver.New()
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Poll.Enabled = true

	next, _ := m.Update(configview.ConfigSavedMsg{Config: cfg})
	m = next.(Model)
	defer m.session.Poller.Stop()

	assert.NotSame(t, old, m.session)
	assert.Equal(t, srv.URL, m.session.Client.BaseURL())
	assert.True(t, m.session.Poller.Status().Running)
	assert.False(t, old.Poller.Status().Running)
}

func TestConnect_SessionCookie(t *testing.T) {
	mock := mockserver.New(mockserver.WithSession("s3ss"))
	mock.Seed(1)
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	v := newTeaView(zerolog.Nop())

	ok, err := connect(testConfig(srv.URL), v, zerolog.Nop(), staticLookup("s3ss"))
	require.NoError(t, err)
	assert.True(t, ok.HasSession)
	count, err := ok.Client.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	missing, err := connect(testConfig(srv.URL), v, zerolog.Nop(), staticLookup(""))
	require.NoError(t, err)
	assert.False(t, missing.HasSession)
	_, err = missing.Client.UnreadCount(context.Background())
	assert.True(t, foodshare.IsAuthError(err))
}

func TestConnect_BadURL(t *testing.T) {
	_, err := connect(testConfig("http://[::1"), newTeaView(zerolog.Nop()), zerolog.Nop(), staticLookup(""))
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	mock := mockserver.New(mockserver.WithSession("s3ss"))
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	check := probe(zerolog.Nop(), staticLookup("stored"))
	srvCfg := testConfig(srv.URL).Server

	assert.NoError(t, check(context.Background(), srvCfg, configview.Secrets{Session: "s3ss"}))

	err := check(context.Background(), srvCfg, configview.Secrets{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected the session cookie")
}

func TestFailureText(t *testing.T) {
	assert.Equal(t, "CSRF verification failed.", failureText(&foodshare.AuthError{
		StatusError: foodshare.StatusError{StatusCode: 403, Message: "CSRF verification failed."},
	}))
	assert.Equal(t, "Session expired", failureText(&notify.RejectedError{Status: "error", Message: "Session expired"}))
	assert.Equal(t, "dial tcp: refused", failureText(errors.New("dial tcp: refused")))
}

func TestRangeTarget(t *testing.T) {
	d := time.Date(2026, 6, 1, 0, 0, 0, 0, time.Local)
	assert.Equal(t, "2026-06-01..", rangeTarget(d, time.Time{}))
	assert.Equal(t, "..2026-06-01", rangeTarget(time.Time{}, d))
	assert.Equal(t, "..", rangeTarget(time.Time{}, time.Time{}))
}
