package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, slog.LevelInfo, FormatText)

	logger.Debug("hidden")
	logger.Info("shown", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "err=boom")
}

func TestNewWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, slog.LevelDebug, "JSON")

	logger.Debug("flushed", "bytes", 42)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "flushed", record["msg"])
	assert.Equal(t, float64(42), record["bytes"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
