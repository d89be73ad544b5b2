package notify

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func advanceAll(s State, counts ...int) []time.Duration {
	out := make([]time.Duration, 0, len(counts))
	for _, c := range counts {
		s = s.Advance(c)
		out = append(out, s.Interval)
	}
	return out
}

func TestAdvance_StaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := InitialState()
	for i := 0; i < 5000; i++ {
		// Skew towards repeats so the upper bound is exercised too.
		count := s.LastCount
		if rng.Intn(4) == 0 {
			count = rng.Intn(200)
		}
		s = s.Advance(count)
		assert.GreaterOrEqual(t, s.Interval, MinInterval)
		assert.LessOrEqual(t, s.Interval, MaxInterval)
	}
}

func TestAdvance_UnchangedCountSlowsDown(t *testing.T) {
	s := State{Interval: 60 * time.Second, LastCount: 5}
	got := advanceAll(s, 5, 5, 5)
	assert.Equal(t, []time.Duration{90 * time.Second, 120 * time.Second, 150 * time.Second}, got)
}

func TestAdvance_CapsAtMaximum(t *testing.T) {
	s := State{Interval: 270 * time.Second, LastCount: 5}
	got := advanceAll(s, 5, 5)
	assert.Equal(t, []time.Duration{MaxInterval, MaxInterval}, got)
}

func TestAdvance_ChangedCountSpeedsUp(t *testing.T) {
	s := State{Interval: 180 * time.Second, LastCount: 1}
	got := advanceAll(s, 5, 8, 3)
	assert.Equal(t, []time.Duration{150 * time.Second, 120 * time.Second, 90 * time.Second}, got)
}

func TestAdvance_ZeroResetsToIdle(t *testing.T) {
	for _, start := range []time.Duration{MinInterval, 90 * time.Second, MaxInterval} {
		s := State{Interval: start, LastCount: 12}.Advance(0)
		assert.Equal(t, IdleInterval, s.Interval, "from %v", start)
		assert.Equal(t, 0, s.LastCount)
	}

	// Repeated zeros hold at the idle interval.
	s := InitialState().Advance(0).Advance(0)
	assert.Equal(t, IdleInterval, s.Interval)
}

func TestAdvance_FirstCountStaysAtFloor(t *testing.T) {
	s := InitialState().Advance(3)
	assert.Equal(t, MinInterval, s.Interval)
	assert.Equal(t, 3, s.LastCount)
}

func TestBadgeLabel(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, ""},
		{-1, ""},
		{1, "1"},
		{99, "99"},
		{100, "99+"},
		{150, "99+"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BadgeLabel(tt.count), "count %d", tt.count)
	}
}
