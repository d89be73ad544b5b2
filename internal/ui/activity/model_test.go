package activity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/foodshare-desk/internal/keys"
	"github.com/nhle/foodshare-desk/internal/model"
	"github.com/nhle/foodshare-desk/internal/testutil"
)

func TestLoadAndRender(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordActivity(ctx, model.Activity{
		Kind:    model.ActivityReportRange,
		Target:  "2026-06-01..2026-06-10",
	}))
	require.NoError(t, s.RecordActivity(ctx, model.Activity{
		Kind:    model.ActivityMarkAllRead,
		Outcome: model.OutcomeFailed,
		Message: "CSRF verification failed.",
	}))

	m := New(s, keys.DefaultKeyMap(), 120, 20)
	msg := m.Load()()
	loaded, ok := msg.(LoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	require.Len(t, loaded.Entries, 2)

	m, _ = m.Update(loaded)
	view := m.View()
	assert.Contains(t, view, "Activity (2)")
	assert.Contains(t, view, "2026-06-01..2026-06-10")
	assert.Contains(t, view, "CSRF verification failed.")
}

func TestEmpty(t *testing.T) {
	m := New(testutil.NewTestStore(t), keys.DefaultKeyMap(), 120, 20)
	m, _ = m.Update(m.Load()())
	assert.Contains(t, m.View(), "Nothing yet")
}
