package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.Info().Str("account_id", "a1").Msg("ingestion finished")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "a1", entry["account_id"])
	assert.Equal(t, "ingestion finished", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestConfigure_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Configure(&buf, "warn", false)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf).With().Str("component", "test").Logger()

	ctx := WithContext(context.Background(), log)
	fromCtx := FromContext(ctx, Nop())
	fromCtx.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"test"`)

	var other bytes.Buffer
	fallback := FromContext(context.Background(), NewWithWriter(&other))
	fallback.Info().Msg("fallback")
	assert.Contains(t, other.String(), "fallback")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", Snippet("a\n  b\tc", 10))
	assert.Equal(t, "abc…", Snippet("abcdef", 3))
}
