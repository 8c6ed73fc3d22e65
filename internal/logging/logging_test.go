package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", "json")
	require.NoError(t, err)

	l.Info().Msg("hidden")
	l.Warn().Str("peer_id", "p1").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "p1", line["peer_id"])
	assert.Contains(t, line, "time")
	assert.Contains(t, line, "caller")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "", "")
	require.NoError(t, err)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "INF")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("debug", "console"))
	assert.ErrorContains(t, Validate("chatty", "json"), "chatty")
	assert.ErrorContains(t, Validate("info", "xml"), "xml")
}
