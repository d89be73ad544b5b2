// Package notify keeps an unread-notification badge current with an
// adaptive polling interval and issues the mark-as-read mutations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/nhle/foodshare-desk/internal/model"
)

// Toast texts shown around mutations.
const (
	ProcessingMessage      = "Processing..."
	MarkAllReadDoneMessage = "All notifications marked as read."
	MarkAllReadFailMessage = "Failed to mark notifications as read."
	MarkOneReadFailMessage = "Failed to mark notification as read."
)

// defaultFetchTimeout bounds a single request made by the poller.
const defaultFetchTimeout = 30 * time.Second

// Source is the server side of the notification endpoints.
type Source interface {
	UnreadCount(ctx context.Context) (int, error)
	Recent(ctx context.Context) (string, error)
	MarkAllRead(ctx context.Context) (model.MutationResult, error)
	MarkRead(ctx context.Context, id string) (model.MutationResult, error)
}

// View is whatever displays the badge, the list and transient messages.
type View interface {
	ShowCount(label string)
	HideCount()
	RenderList(fragment string)
	Toast(message string)
}

// serverMessager is implemented by errors that carry a message from the
// server body.
type serverMessager interface {
	ServerMessage() string
}

// PollStatus is a snapshot of the poller for display.
type PollStatus struct {
	Running   bool
	Interval  time.Duration
	LastCount int
	LastPoll  time.Time
	LastError error
}

// Stale reports whether the last count fetch failed.
func (s PollStatus) Stale() bool {
	return s.LastError != nil
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger the poller derives its own from.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Poller) {
		p.log = l.With().Str("component", "notify").Logger()
	}
}

// WithFetchTimeout bounds every request the poller makes.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

func withAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(p *Poller) {
		p.after = after
	}
}

// Poller drives the unread-count badge. Ticks run on a single goroutine, so
// a tick is scheduled only after the previous fetch has resolved.
type Poller struct {
	src          Source
	view         View
	log          zerolog.Logger
	fetchTimeout time.Duration
	after        func(time.Duration) <-chan time.Time
	group        singleflight.Group
	trigger      chan struct{}

	mu       sync.Mutex
	state    State
	lastPoll time.Time
	lastErr  error
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a poller over src that reports to view.
func New(src Source, view View, opts ...Option) *Poller {
	p := &Poller{
		src:          src,
		view:         view,
		log:          zerolog.Nop(),
		fetchTimeout: defaultFetchTimeout,
		after:        time.After,
		trigger:      make(chan struct{}, 1),
		state:        InitialState(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling: one tick immediately, then one per interval until
// Stop is called or ctx ends. Starting a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	p.log.Info().Msg("poller started")
	go p.run(ctx, done)
}

// Stop halts polling and waits for an in-flight tick to be abandoned.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Info().Msg("poller stopped")
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		delay := p.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-p.after(delay):
		case <-p.trigger:
		}
	}
}

// Refresh asks the polling loop to tick now instead of waiting out the
// interval. It never runs a tick itself, so ticks still cannot overlap.
func (p *Poller) Refresh() {
	select {
	case p.trigger <- struct{}{}:
	default:
		// A refresh is already pending.
	}
}

// Tick fetches the unread count once, updates the badge and the interval,
// and returns the delay before the next tick. A failed fetch leaves the
// state untouched.
func (p *Poller) Tick(ctx context.Context) time.Duration {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	count, err := p.src.UnreadCount(fetchCtx)
	if err != nil {
		if ctx.Err() != nil {
			return p.interval()
		}
		p.log.Warn().Err(err).Msg("fetching unread count")
		p.mu.Lock()
		p.lastErr = err
		interval := p.state.Interval
		p.mu.Unlock()
		return interval
	}

	return p.applyCount(count)
}

// applyCount advances the state with count and updates the badge.
func (p *Poller) applyCount(count int) time.Duration {
	p.mu.Lock()
	prev := p.state
	p.state = prev.Advance(count)
	p.lastPoll = time.Now()
	p.lastErr = nil
	next := p.state
	p.mu.Unlock()

	if label := BadgeLabel(count); label != "" {
		p.view.ShowCount(label)
	} else {
		p.view.HideCount()
	}

	p.log.Debug().
		Int("count", count).
		Dur("interval", next.Interval).
		Dur("previous_interval", prev.Interval).
		Msg("unread count polled")

	return next.Interval
}

func (p *Poller) interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Interval
}

// refreshCount fetches the count outside the tick schedule.
func (p *Poller) refreshCount(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	count, err := p.src.UnreadCount(fetchCtx)
	if err != nil {
		p.log.Warn().Err(err).Msg("refreshing unread count")
		return
	}
	p.applyCount(count)
}

// LoadList fetches the notification fragment and hands it to the view
// verbatim. Failures are logged and returned but never shown to the user.
func (p *Poller) LoadList(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	html, err := p.src.Recent(fetchCtx)
	if err != nil {
		p.log.Warn().Err(err).Msg("loading notification list")
		return fmt.Errorf("loading notification list: %w", err)
	}
	p.view.RenderList(html)
	return nil
}

// MarkAllRead marks every notification read. Concurrent calls share one
// request. On success it refreshes the badge and the list; on failure it
// only shows an error.
func (p *Poller) MarkAllRead(ctx context.Context) error {
	_, err, _ := p.group.Do("all", func() (interface{}, error) {
		p.view.Toast(ProcessingMessage)

		fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()

		res, err := p.src.MarkAllRead(fetchCtx)
		if err != nil {
			p.log.Error().Err(err).Msg("mark all read")
			p.view.Toast(failureMessage(err, MarkAllReadFailMessage))
			return nil, fmt.Errorf("marking all notifications read: %w", err)
		}
		if !res.OK() {
			p.log.Warn().Str("status", res.Status).Str("message", res.Message).Msg("mark all read rejected")
			p.view.Toast(messageOr(res.Message, MarkAllReadFailMessage))
			return nil, &RejectedError{Status: res.Status, Message: res.Message}
		}

		p.view.Toast(messageOr(res.Message, MarkAllReadDoneMessage))
		p.refreshCount(ctx)
		_ = p.LoadList(ctx)
		return nil, nil
	})
	return err
}

// MarkOneRead marks a single notification read. Concurrent calls for the
// same id share one request.
func (p *Poller) MarkOneRead(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("notification id is empty")
	}

	_, err, _ := p.group.Do("one:"+id, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()

		res, err := p.src.MarkRead(fetchCtx, id)
		if err != nil {
			p.log.Error().Err(err).Str("id", id).Msg("mark read")
			p.view.Toast(failureMessage(err, MarkOneReadFailMessage))
			return nil, fmt.Errorf("marking notification %s read: %w", id, err)
		}
		if !res.OK() {
			p.log.Warn().Str("id", id).Str("status", res.Status).Msg("mark read rejected")
			p.view.Toast(messageOr(res.Message, MarkOneReadFailMessage))
			return nil, &RejectedError{Status: res.Status, Message: res.Message}
		}

		p.refreshCount(ctx)
		_ = p.LoadList(ctx)
		return nil, nil
	})
	return err
}

// Status returns a snapshot of the poller.
func (p *Poller) Status() PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PollStatus{
		Running:   p.cancel != nil,
		Interval:  p.state.Interval,
		LastCount: p.state.LastCount,
		LastPoll:  p.lastPoll,
		LastError: p.lastErr,
	}
}

// RejectedError is returned when the server answers a mutation with a
// non-success status.
type RejectedError struct {
	Status  string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected mutation (%s): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server rejected mutation (%s)", e.Status)
}

func failureMessage(err error, fallback string) string {
	var sm serverMessager
	if errors.As(err, &sm) {
		return messageOr(sm.ServerMessage(), fallback)
	}
	return fallback
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
