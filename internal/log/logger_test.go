package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"production", "", zerolog.InfoLevel},
		{"development", "", zerolog.DebugLevel},
		{"production", "warn", zerolog.WarnLevel},
		{"development", "ERROR", zerolog.ErrorLevel},
		{"production", "debug", zerolog.DebugLevel},
		{"production", "verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.env, tt.level), "env=%s level=%s", tt.env, tt.level)
	}
}

func TestNewWithWriter_AddsServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "production", "info", "api")

	logger.Debug().Msg("hidden")
	logger.Info().Str("user_id", "u1").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "service=api")
	assert.Contains(t, out, "user_id=u1")
}
