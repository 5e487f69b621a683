package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"robocam/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON形式(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "info", Format: "json"}, &buf)

	logger.Info().Str("component", "camera").Msg("初期化しました")
	logger.Debug().Msg("出力されない")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "robocam", entry["app"])
	assert.Equal(t, "camera", entry["component"])
	assert.Equal(t, "初期化しました", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_グローバル設定を変更しない(t *testing.T) {
	unit := zerolog.DurationFieldUnit
	level := zerolog.GlobalLevel()

	_ = New(config.LogConfig{Level: "debug", Format: "json"}, &bytes.Buffer{})

	assert.Equal(t, unit, zerolog.DurationFieldUnit)
	assert.Equal(t, time.Millisecond, zerolog.DurationFieldUnit)
	assert.Equal(t, level, zerolog.GlobalLevel())
}

func TestNew_コンソール形式(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "debug", Format: "console"}, &buf)

	logger.Debug().Msg("デバッグ")
	assert.Contains(t, buf.String(), "デバッグ")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}
