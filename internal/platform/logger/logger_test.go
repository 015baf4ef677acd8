package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, "json", "info").Info("hello", "k", "v")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "hello", line["msg"])
		assert.Equal(t, "v", line["k"])
	})

	t.Run("level filters debug", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWithWriter(&buf, "text", "warn")
		l.Debug("hidden")
		l.Info("hidden")
		assert.Zero(t, buf.Len())
		l.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}
