package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Writer()
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(orig)
		log.SetFlags(flags)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarning, ParseLevel("warn"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("info"))
	assert.Equal(t, LogLevelInfo, ParseLevel("bogus"))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, LogFormatJSON, ParseFormat("json"))
	assert.Equal(t, LogFormatHuman, ParseFormat("human"))
	assert.Equal(t, LogFormatHuman, ParseFormat(""))
}

func TestHumanFormatIncludesSortedFields(t *testing.T) {
	buf := captureLog(t)
	logger := NewDefaultLogger(LogLevelDebug, LogFormatHuman)

	logger.LogWarning(context.Background(), "entry skipped", map[string]interface{}{
		"name": "docker",
		"kind": "missing snippet file",
	})

	out := buf.String()
	assert.Contains(t, out, "[WARNING] entry skipped")
	assert.Contains(t, out, "kind=missing snippet file name=docker")
}

func TestJSONFormatEmitsValidRecord(t *testing.T) {
	buf := captureLog(t)
	logger := NewDefaultLogger(LogLevelDebug, LogFormatJSON)

	logger.LogInfo(context.Background(), "config reloaded", map[string]interface{}{
		"entries": 3,
	})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "config reloaded", record["message"])
	assert.Equal(t, float64(3), record["entries"])
	assert.NotEmpty(t, record["timestamp"])
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLog(t)
	logger := NewDefaultLogger(LogLevelError, LogFormatHuman)

	ctx := context.Background()
	logger.LogDebug(ctx, "debug", nil)
	logger.LogInfo(ctx, "info", nil)
	logger.LogWarning(ctx, "warning", nil)
	assert.Empty(t, buf.String())

	logger.LogError(ctx, "boom", nil)
	assert.Contains(t, buf.String(), "[ERROR] boom")
}
