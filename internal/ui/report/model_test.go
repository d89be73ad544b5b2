package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/foodshare-desk/internal/daterange"
	"github.com/nhle/foodshare-desk/internal/keys"
)

func fixedClock() time.Time {
	return time.Date(2026, 6, 15, 9, 0, 0, 0, time.Local)
}

func started(t *testing.T) Model {
	t.Helper()
	m := New(keys.DefaultKeyMap(), fixedClock, 80, 24)
	require.NotNil(t, m.Start())
	return m
}

func TestSubmit_ValidRange(t *testing.T) {
	m := started(t)
	m.fb.start = "2026-06-01"
	m.fb.end = "2026-06-10"

	_, cmd := m.handleSubmit()
	require.NotNil(t, cmd)

	msg, ok := cmd().(RangeChosenMsg)
	require.True(t, ok)
	assert.Equal(t, "2026-06-01", msg.Start.Format(daterange.DateLayout))
	assert.Equal(t, "2026-06-10", msg.End.Format(daterange.DateLayout))
}

func TestSubmit_OpenEndedRange(t *testing.T) {
	m := started(t)
	m.fb.start = "2026-06-01"

	_, cmd := m.handleSubmit()
	msg, ok := cmd().(RangeChosenMsg)
	require.True(t, ok)
	assert.True(t, msg.End.IsZero())
}

func TestSubmit_InvalidRangeRestarts(t *testing.T) {
	m := started(t)
	m.fb.start = "2026-06-10"
	m.fb.end = "2026-06-01"

	next, _ := m.handleSubmit()
	assert.NotSame(t, m.fb, next.fb, "form is rebuilt")
	assert.Equal(t, "2026-06-10", next.fb.start)
	assert.Equal(t, "2026-06-01", next.fb.end)
}

func TestFieldValidators(t *testing.T) {
	m := started(t)
	fb := m.fb

	fb.startIn.SetText("2026-07-01")
	err := fieldError(fb.startIn)
	require.Error(t, err)
	assert.Equal(t, daterange.MsgStartInFuture, err.Error())

	fb.startIn.SetText("2026-06-10")
	assert.NoError(t, fieldError(fb.startIn))

	fb.endIn.SetText("2026-06-01")
	err = fieldError(fb.endIn)
	require.Error(t, err)
	assert.Equal(t, daterange.MsgEndBeforeFrom, err.Error())

	fb.endIn.SetText("junk")
	err = fieldError(fb.endIn)
	require.Error(t, err)
	assert.Equal(t, "Use the YYYY-MM-DD format.", err.Error())
}

func TestRestartDetachesPreviousPair(t *testing.T) {
	m := started(t)
	old := m.fb
	m.Start()

	old.startIn.SetText("2026-07-01")
	assert.Empty(t, old.startIn.ValidationMessage())
}
