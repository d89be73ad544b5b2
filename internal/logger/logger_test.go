package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/foodshare-desk/internal/model"
)

func TestNew_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "foodshare")

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"shown"`)
	assert.Contains(t, out, `"service":"foodshare"`)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log := New(&bytes.Buffer{}, "chatty", "foodshare")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "foodshare.log")
	log, closer, err := NewFile(model.LogConfig{Level: "debug", File: path}, "foodshare")
	require.NoError(t, err)

	log.Debug().Str("component", "test").Msg("written")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
}
