package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Formats(t *testing.T) {
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New("info", FormatText, &buf)
		require.NoError(t, err)
		l.Info(ctx, "grid loaded", "rows", 3)
		assert.Contains(t, buf.String(), "msg=\"grid loaded\"")
		assert.Contains(t, buf.String(), "rows=3")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New("info", FormatJSON, &buf)
		require.NoError(t, err)
		l.Info(ctx, "grid loaded", "rows", 3)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "grid loaded", line["msg"])
		assert.EqualValues(t, 3, line["rows"])
	})

	t.Run("zap", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New("debug", FormatZap, &buf)
		require.NoError(t, err)
		l.With("call_id", "P_1010").Debug(ctx, "fetching", "attempt", 1)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "fetching", line["message"])
		assert.Equal(t, "debug", line["level"])
		assert.Equal(t, "P_1010", line["call_id"])
		assert.EqualValues(t, 1, line["attempt"])
	})
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", FormatZap, &buf)
	require.NoError(t, err)

	l.Info(context.Background(), "hidden")
	l.Warn(context.Background(), "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestNew_Errors(t *testing.T) {
	_, err := New("loud", FormatText, &bytes.Buffer{})
	require.Error(t, err)

	_, err = New("info", "xml", &bytes.Buffer{})
	require.Error(t, err)
}

func TestNop_DoesNotPanic(t *testing.T) {
	l := Nop()
	ctx := context.TODO()
	l.Debug(ctx, "x")
	l.Info(ctx, "x")
	l.Warn(ctx, "x")
	l.With("k", "v").Error(ctx, "x")
}
