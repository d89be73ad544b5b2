package notify

import (
	"strconv"
	"time"
)

// Polling bounds. IdleInterval is used whenever the server reports no
// unread notifications, regardless of the current interval.
const (
	MinInterval  = 30 * time.Second
	MaxInterval  = 300 * time.Second
	Step         = 30 * time.Second
	IdleInterval = 60 * time.Second
)

// badgeCap is the largest count the badge shows verbatim.
const badgeCap = 99

// State is the adaptive polling state of one poller.
type State struct {
	Interval  time.Duration
	LastCount int
}

// InitialState returns the state a new poller starts from.
func InitialState() State {
	return State{Interval: MinInterval}
}

// Advance folds a freshly fetched unread count into the state. A changed
// count polls faster, an unchanged count polls slower, and zero resets to
// IdleInterval.
func (s State) Advance(count int) State {
	if count < 0 {
		count = 0
	}

	next := s
	switch {
	case count == 0:
		next.Interval = IdleInterval
	case count != s.LastCount:
		next.Interval = clamp(s.Interval - Step)
	default:
		next.Interval = clamp(s.Interval + Step)
	}
	next.LastCount = count
	return next
}

func clamp(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// BadgeLabel formats an unread count for the indicator. Zero yields "".
func BadgeLabel(count int) string {
	if count <= 0 {
		return ""
	}
	if count > badgeCap {
		return strconv.Itoa(badgeCap) + "+"
	}
	return strconv.Itoa(count)
}
