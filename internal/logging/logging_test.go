package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForServiceBeforeInit(t *testing.T) {
	structuredLogger = nil

	logger := ForService("importer")
	require.NotNil(t, logger, "ForService must fall back to the default logger before Init")

	// Must be safe to log with.
	logger.Warn("place creation failed", "place", "Trench A")
}

func TestForServiceUsesStructuredLogger(t *testing.T) {
	var structured, human bytes.Buffer
	SetOutput(&structured, &human)

	ForService("api").Info("request sent")

	out := structured.String()
	assert.Contains(t, out, `"service":"api"`)
	assert.Contains(t, out, "request sent")

	require.NotNil(t, HumanReadable())
	HumanReadable().Info("hello operator")
	assert.Contains(t, human.String(), "hello operator")
	assert.Same(t, Structured(), structuredLogger)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace":   LevelTrace,
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"fatal":   LevelFatal,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseLevel(input), "level %q", input)
	}
}

func TestUseFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "cms.log")

	closeFunc, err := UseFileOutput(logPath, "archaeotools", slog.LevelInfo)
	require.NoError(t, err)

	ForService("importer").Info("import finished", "places", 3)
	require.NoError(t, closeFunc())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"importer"`)
	assert.Contains(t, string(data), "import finished")
}
