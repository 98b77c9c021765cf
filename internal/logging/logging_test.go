package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		want zerolog.Level
		ok   bool
	}{
		"":        {zerolog.InfoLevel, false},
		"DEBUG":   {zerolog.DebugLevel, true},
		" warn ":  {zerolog.WarnLevel, true},
		"warning": {zerolog.WarnLevel, true},
		"off":     {zerolog.Disabled, true},
		"loud":    {zerolog.InfoLevel, false},
	}
	for raw, tc := range cases {
		lvl, ok := parseLevel(raw)
		assert.Equal(t, tc.ok, ok, raw)
		assert.Equal(t, tc.want, lvl, raw)
	}
}

func TestParseBool(t *testing.T) {
	v, ok := parseBool("true")
	assert.True(t, ok)
	assert.True(t, v)

	_, ok = parseBool("")
	assert.False(t, ok)
	_, ok = parseBool("maybe")
	assert.False(t, ok)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogJSON, "1")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	assert.Equal(t, zerolog.ErrorLevel, cfg.Level)
	assert.False(t, cfg.Timestamp)
	assert.True(t, cfg.JSON)
	assert.False(t, cfg.NoColor)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Config{Level: zerolog.InfoLevel, JSON: true})

	log.Debug().Msg("hidden")
	log.Info().Int("n_particles", 202).Msg("stream done")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"n_particles":202`)
	assert.NotContains(t, out, `"time"`)
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Config{Level: zerolog.DebugLevel, NoColor: true})
	log.Debug().Str("integrator", "rk45").Msg("segment")
	assert.Contains(t, buf.String(), "integrator=rk45")
}

func TestConfigureOnce(t *testing.T) {
	ConfigureTests()
	first := Logger()
	ConfigureRuntime()
	require.Equal(t, first.GetLevel(), Logger().GetLevel())
}
