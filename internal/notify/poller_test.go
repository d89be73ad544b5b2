package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/foodshare-desk/internal/model"
)

type fakeSource struct {
	mu        sync.Mutex
	counts    []int
	countErr  error
	html      string
	listErr   error
	markRes   model.MutationResult
	markErr   error
	markGate  chan struct{}
	markCalls atomic.Int32
	oneCalls  atomic.Int32
	listCalls atomic.Int32
}

func (f *fakeSource) UnreadCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	if len(f.counts) == 0 {
		return 0, nil
	}
	c := f.counts[0]
	if len(f.counts) > 1 {
		f.counts = f.counts[1:]
	}
	return c, nil
}

func (f *fakeSource) Recent(ctx context.Context) (string, error) {
	f.listCalls.Add(1)
	return f.html, f.listErr
}

func (f *fakeSource) MarkAllRead(ctx context.Context) (model.MutationResult, error) {
	f.markCalls.Add(1)
	if f.markGate != nil {
		<-f.markGate
	}
	return f.markRes, f.markErr
}

func (f *fakeSource) MarkRead(ctx context.Context, id string) (model.MutationResult, error) {
	f.oneCalls.Add(1)
	if f.markGate != nil {
		<-f.markGate
	}
	return f.markRes, f.markErr
}

type fakeView struct {
	mu     sync.Mutex
	badge  string
	shown  bool
	list   string
	toasts []string
}

func (v *fakeView) ShowCount(label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.badge, v.shown = label, true
}

func (v *fakeView) HideCount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.badge, v.shown = "", false
}

func (v *fakeView) RenderList(fragment string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.list = fragment
}

func (v *fakeView) Toast(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.toasts = append(v.toasts, message)
}

func (v *fakeView) lastToast() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.toasts) == 0 {
		return ""
	}
	return v.toasts[len(v.toasts)-1]
}

type serverErr struct{ msg string }

func (e *serverErr) Error() string         { return "status 500: " + e.msg }
func (e *serverErr) ServerMessage() string { return e.msg }

func TestTick_FirstCountShowsBadge(t *testing.T) {
	src := &fakeSource{counts: []int{3}}
	view := &fakeView{}
	p := New(src, view)

	next := p.Tick(context.Background())

	assert.Equal(t, MinInterval, next)
	assert.True(t, view.shown)
	assert.Equal(t, "3", view.badge)
	st := p.Status()
	assert.Equal(t, 3, st.LastCount)
	assert.False(t, st.Stale())
	assert.False(t, st.LastPoll.IsZero())
}

func TestTick_LargeCountIsCapped(t *testing.T) {
	view := &fakeView{}
	p := New(&fakeSource{counts: []int{150}}, view)
	p.Tick(context.Background())
	assert.Equal(t, "99+", view.badge)
}

func TestTick_ZeroHidesBadge(t *testing.T) {
	src := &fakeSource{counts: []int{4, 4, 4, 0}}
	view := &fakeView{}
	p := New(src, view)

	var next time.Duration
	for i := 0; i < 4; i++ {
		next = p.Tick(context.Background())
	}
	assert.Equal(t, IdleInterval, next)
	assert.False(t, view.shown)
}

func TestTick_FailureLeavesStateUntouched(t *testing.T) {
	src := &fakeSource{counts: []int{5, 5}}
	view := &fakeView{}
	p := New(src, view)

	p.Tick(context.Background())
	before := p.Status()

	src.countErr = errors.New("connection refused")
	next := p.Tick(context.Background())

	after := p.Status()
	assert.Equal(t, before.Interval, next)
	assert.Equal(t, before.Interval, after.Interval)
	assert.Equal(t, before.LastCount, after.LastCount)
	assert.True(t, after.Stale())
	assert.Equal(t, "5", view.badge, "badge keeps its stale value")
	assert.Empty(t, view.toasts, "read failures are never toasted")

	src.countErr = nil
	p.Tick(context.Background())
	assert.False(t, p.Status().Stale())
}

func TestStart_SchedulesSequentially(t *testing.T) {
	src := &fakeSource{counts: []int{3, 3, 3, 7}}
	view := &fakeView{}

	delays := make(chan time.Duration, 16)
	fire := make(chan time.Time)
	p := New(src, view, withAfter(func(d time.Duration) <-chan time.Time {
		delays <- d
		return fire
	}))

	p.Start(context.Background())
	p.Start(context.Background())

	want := []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second, 60 * time.Second}
	for i, w := range want {
		select {
		case got := <-delays:
			assert.Equal(t, w, got, "tick %d", i)
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d was never scheduled", i)
		}
		if i < len(want)-1 {
			fire <- time.Now()
		}
	}

	assert.True(t, p.Status().Running)
	p.Stop()
	assert.False(t, p.Status().Running)
	assert.Empty(t, delays, "no tick is scheduled before the previous one resolves")

	assert.NotPanics(t, p.Stop)
}

func TestLoadList_RendersVerbatim(t *testing.T) {
	frag := `<li data-notification-id="7" class="unread">Pickup at <b>5pm</b></li>`
	view := &fakeView{}
	p := New(&fakeSource{html: frag}, view)

	require.NoError(t, p.LoadList(context.Background()))
	assert.Equal(t, frag, view.list)
}

func TestLoadList_FailureIsSilent(t *testing.T) {
	view := &fakeView{list: "old"}
	p := New(&fakeSource{listErr: errors.New("timeout")}, view)

	assert.Error(t, p.LoadList(context.Background()))
	assert.Equal(t, "old", view.list)
	assert.Empty(t, view.toasts)
}

func TestMarkAllRead_SuccessShowsServerMessage(t *testing.T) {
	src := &fakeSource{
		counts:  []int{0},
		html:    "<ul></ul>",
		markRes: model.MutationResult{Status: model.MutationSuccess, Message: "All caught up"},
	}
	view := &fakeView{badge: "4", shown: true}
	p := New(src, view)

	require.NoError(t, p.MarkAllRead(context.Background()))

	assert.Equal(t, []string{ProcessingMessage, "All caught up"}, view.toasts)
	assert.False(t, view.shown, "count refreshed after success")
	assert.Equal(t, "<ul></ul>", view.list, "list refreshed after success")
}

func TestMarkAllRead_SuccessWithoutMessage(t *testing.T) {
	src := &fakeSource{markRes: model.MutationResult{Status: model.MutationSuccess}}
	view := &fakeView{}
	p := New(src, view)

	require.NoError(t, p.MarkAllRead(context.Background()))
	assert.Equal(t, MarkAllReadDoneMessage, view.lastToast())
}

func TestMarkAllRead_FailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSource
		want string
	}{
		{
			name: "error status without message",
			src:  &fakeSource{markRes: model.MutationResult{Status: model.MutationError}},
			want: MarkAllReadFailMessage,
		},
		{
			name: "error status with message",
			src:  &fakeSource{markRes: model.MutationResult{Status: model.MutationError, Message: "Session expired"}},
			want: "Session expired",
		},
		{
			name: "transport failure",
			src:  &fakeSource{markErr: errors.New("dial tcp: refused")},
			want: MarkAllReadFailMessage,
		},
		{
			name: "http error with body message",
			src:  &fakeSource{markErr: &serverErr{msg: "CSRF verification failed"}},
			want: "CSRF verification failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := &fakeView{badge: "4", shown: true, list: "old"}
			p := New(tt.src, view)

			err := p.MarkAllRead(context.Background())
			require.Error(t, err)

			assert.Equal(t, tt.want, view.lastToast())
			assert.NotContains(t, view.lastToast(), "undefined")
			assert.Equal(t, "4", view.badge, "badge unchanged on failure")
			assert.Equal(t, "old", view.list, "list unchanged on failure")
			assert.Zero(t, tt.src.listCalls.Load())
		})
	}
}

func TestMarkAllRead_ConcurrentCallsShareRequest(t *testing.T) {
	src := &fakeSource{
		markRes:  model.MutationResult{Status: model.MutationSuccess},
		markGate: make(chan struct{}),
	}
	p := New(src, &fakeView{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.MarkAllRead(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return src.markCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Give the second caller time to join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(src.markGate)
	wg.Wait()

	assert.Equal(t, int32(1), src.markCalls.Load())
}

func TestMarkOneRead_RefreshesOnSuccess(t *testing.T) {
	src := &fakeSource{
		counts:  []int{2},
		html:    "<ul><li>one</li></ul>",
		markRes: model.MutationResult{Status: model.MutationSuccess},
	}
	view := &fakeView{}
	p := New(src, view)

	require.NoError(t, p.MarkOneRead(context.Background(), "42"))
	assert.Equal(t, "2", view.badge)
	assert.Equal(t, "<ul><li>one</li></ul>", view.list)
	assert.Empty(t, view.toasts)
}

func TestMarkOneRead_FailureToasts(t *testing.T) {
	src := &fakeSource{markErr: errors.New("boom")}
	view := &fakeView{}
	p := New(src, view)

	require.Error(t, p.MarkOneRead(context.Background(), "42"))
	assert.Equal(t, MarkOneReadFailMessage, view.lastToast())
	assert.Zero(t, src.listCalls.Load())
}

func TestMarkOneRead_EmptyID(t *testing.T) {
	src := &fakeSource{}
	p := New(src, &fakeView{})
	assert.Error(t, p.MarkOneRead(context.Background(), ""))
	assert.Zero(t, src.oneCalls.Load())
}

func TestRefresh_TicksEarly(t *testing.T) {
	src := &fakeSource{counts: []int{2, 5}}
	view := &fakeView{}

	delays := make(chan time.Duration, 16)
	never := make(chan time.Time)
	p := New(src, view, withAfter(func(d time.Duration) <-chan time.Time {
		delays <- d
		return never
	}))

	p.Start(context.Background())
	defer p.Stop()

	require.Equal(t, MinInterval, <-delays)

	p.Refresh()
	p.Refresh()

	select {
	case d := <-delays:
		assert.Equal(t, MinInterval, d)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not trigger a tick")
	}
	require.Eventually(t, func() bool {
		view.mu.Lock()
		defer view.mu.Unlock()
		return view.badge == "5"
	}, time.Second, 5*time.Millisecond)
}
