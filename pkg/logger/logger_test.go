package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONWithComponent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	Init(Options{Level: "debug", Service: "security-core", Output: &buf})

	cl := Component("detector")
	cl.Debug().Str("ip", "10.0.0.1").Msg("window opened")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "security-core", line["service"])
	assert.Equal(t, "detector", line["component"])
	assert.Equal(t, "10.0.0.1", line["ip"])
	assert.Equal(t, "debug", line["level"])
}

func TestInit_OnlyFirstCallApplies(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Level: "warn", Output: &first})
	Init(Options{Level: "debug", Output: &second})

	l := Get()
	l.Info().Msg("filtered")
	l.Warn().Msg("kept")

	assert.Empty(t, second.String())
	assert.Equal(t, 1, strings.Count(first.String(), "\n"))
}

func TestGet_BeforeInitIsNop(t *testing.T) {
	Reset()
	assert.NotPanics(t, func() { l := Get(); l.Info().Msg("dropped") })
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
