package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, on, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, slog.LevelDebug, lvl)

	_, on, err = ParseLevel("OFF")
	require.NoError(t, err)
	assert.False(t, on)

	_, _, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNew_FiltersAndTags(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "site", Warn)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", "fn", "parse")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "engine=site")
	assert.Contains(t, out, "fn=parse")
}

func TestNew_Off(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "quiet", Off)
	require.NoError(t, err)

	log.Error("nothing")
	assert.Empty(t, buf.String())
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}
