package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestSetupJSON(t *testing.T) {
	original := log.Logger
	defer func() { log.Logger = original }()

	var buf bytes.Buffer
	l := Setup("warn", FormatJSON, &buf)

	l.Info().Msg("dropped")
	log.Warn().Str("form", "contact").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "contact", entry["form"])
	assert.Contains(t, entry, "time")
}

func TestSetupConsole(t *testing.T) {
	original := log.Logger
	defer func() { log.Logger = original }()

	var buf bytes.Buffer
	Setup("info", FormatConsole, &buf)
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", MaskToken(""))
	assert.Equal(t, "****", MaskToken("short"))
	assert.Equal(t, "0123abcd****", MaskToken("0123abcdef0123456789"))
}
