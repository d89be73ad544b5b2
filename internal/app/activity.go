package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/foodshare-desk/internal/daterange"
	"github.com/nhle/foodshare-desk/internal/foodshare"
	"github.com/nhle/foodshare-desk/internal/model"
	"github.com/nhle/foodshare-desk/internal/notify"
)

// activityRetention is how long activity entries are kept.
const activityRetention = 90 * 24 * time.Hour

// mutationDoneMsg reports the outcome of a mark-as-read request.
type mutationDoneMsg struct {
	kind   model.ActivityKind
	target string
	err    error
}

// activityRecordedMsg is sent after an activity entry was written.
type activityRecordedMsg struct {
	err error
}

// markAllRead returns a command that runs the mutation through the poller.
func (m Model) markAllRead() tea.Cmd {
	p := m.session.Poller
	return func() tea.Msg {
		err := p.MarkAllRead(context.Background())
		return mutationDoneMsg{kind: model.ActivityMarkAllRead, err: err}
	}
}

// markRead returns a command that marks a single notification read.
func (m Model) markRead(id string) tea.Cmd {
	p := m.session.Poller
	return func() tea.Msg {
		err := p.MarkOneRead(context.Background(), id)
		return mutationDoneMsg{kind: model.ActivityMarkRead, target: id, err: err}
	}
}

// recordActivity returns a command that writes an activity entry.
func (m Model) recordActivity(a model.Activity) tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		return activityRecordedMsg{err: s.RecordActivity(context.Background(), a)}
	}
}

// pruneActivity drops entries older than the retention window.
func (m Model) pruneActivity() tea.Cmd {
	s, log, now := m.store, m.log, m.clock
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		n, err := s.PruneActivity(context.Background(), now().Add(-activityRetention))
		if err != nil {
			log.Warn().Err(err).Msg("pruning activity")
			return nil
		}
		if n > 0 {
			log.Info().Int64("removed", n).Msg("pruned old activity")
		}
		return nil
	}
}

// mutationActivity turns a finished mutation into an activity entry.
func mutationActivity(msg mutationDoneMsg) model.Activity {
	a := model.Activity{
		Kind:    msg.kind,
		Target:  msg.target,
		Outcome: model.OutcomeOK,
	}
	if msg.err != nil {
		a.Outcome = model.OutcomeFailed
		a.Message = failureText(msg.err)
	}
	return a
}

// failureText prefers the message the server sent over the raw error.
func failureText(err error) string {
	var se *foodshare.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var re *notify.RejectedError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return err.Error()
}

// rangeTarget formats a report range; empty bounds stay empty.
func rangeTarget(start, end time.Time) string {
	var s, e string
	if !start.IsZero() {
		s = start.Format(daterange.DateLayout)
	}
	if !end.IsZero() {
		e = end.Format(daterange.DateLayout)
	}
	return s + ".." + e
}
