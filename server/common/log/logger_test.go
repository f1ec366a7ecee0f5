package log

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestExceptionfMarksLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Exceptionf("event=chat_generate status=failed error=%v", "boom")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, true, line["exception"])
	assert.Equal(t, "event=chat_generate status=failed error=boom", line["message"])
}

func TestDefaultLoggerDoesNotWriteFiles(t *testing.T) {
	global = newLogger(false)
	Infof("event=test action=default_sink")
	assert.NoDirExists(t, "logs")
}

func TestConfigureReadsEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chatbot.log")
	t.Setenv("LOG_FILE_PATH", path)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Cleanup(func() { SetOutput(io.Discard) })

	Configure()
	Infof("event=test action=configure status=hidden")
	Warnf("event=test action=configure status=shown")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "status=hidden")
	assert.Contains(t, string(raw), "status=shown")
}

func TestConfigureWithoutFileSink(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LOG_FILE_PATH", "-")
	t.Cleanup(func() { SetOutput(io.Discard) })

	Configure()
	Infof("event=test action=configure_no_file")
	assert.NoDirExists(t, filepath.Join(dir, "logs"))
}
