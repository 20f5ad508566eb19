package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavelink-protocol/wavelink-go/pkg/log"
)

// writeCapture creates a capture file with a small representative event mix.
func writeCapture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "session.cbor")
	logger, err := log.NewFileLogger(path)
	require.NoError(t, err)

	logger.Log(log.NewStateChangeEvent("aabbccdd-0001", "DISCONNECTED", "CONNECTING", ""))
	logger.Log(log.NewStateChangeEvent("aabbccdd-0001", "CONNECTING", "CONNECTED", "established"))
	logger.Log(log.NewMessageEvent("aabbccdd-0001", log.DirectionOut, "chat.message", 24))
	logger.Log(log.NewFrameEvent("aabbccdd-0001", log.DirectionIn, 32))
	logger.Log(log.NewControlEvent("aabbccdd-0001", log.DirectionOut, log.ControlMsgPing, 1))
	logger.Log(log.NewErrorEvent("aabbccdd-0001", log.LayerTransport, errors.New("read failed"), "receive"))
	logger.Log(log.NewStateChangeEvent("aabbccdd-0002", "CONNECTING", "CONNECTED", "established"))
	require.NoError(t, logger.Close())

	return path
}

func TestRunView(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	require.NoError(t, RunView(path, ViewFilter{}, &buf))

	out := buf.String()
	assert.Contains(t, out, "[conn:aabbccdd]")
	assert.Contains(t, out, "CONNECTING -> CONNECTED")
	assert.Contains(t, out, "chat.message")
	assert.Contains(t, out, "PING")
	assert.Contains(t, out, "read failed")
}

func TestRunViewLayerFilter(t *testing.T) {
	path := writeCapture(t)

	layer := log.LayerWire
	var buf bytes.Buffer
	require.NoError(t, RunView(path, ViewFilter{Layer: &layer}, &buf))

	out := buf.String()
	assert.Contains(t, out, "chat.message")
	assert.NotContains(t, out, "CONNECTING -> CONNECTED")
}

func TestRunViewCategoryFilter(t *testing.T) {
	path := writeCapture(t)

	cat := log.CategoryError
	var buf bytes.Buffer
	require.NoError(t, RunView(path, ViewFilter{Category: &cat}, &buf))

	out := buf.String()
	assert.Contains(t, out, "read failed")
	assert.NotContains(t, out, "chat.message")
}

func TestRunStats(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))

	out := buf.String()
	assert.Contains(t, out, "Total Events: 7")
	assert.Contains(t, out, "Connections: 2")
	assert.Contains(t, out, "Errors: 1")
	// Two connected transitions: one initial connect plus one reconnect.
	assert.Contains(t, out, "Reconnects: 1")
}

func TestRunExportJSONL(t *testing.T) {
	path := writeCapture(t)
	out := filepath.Join(t.TempDir(), "out.jsonl")

	require.NoError(t, RunExport(path, "jsonl", out))

	data, err := readOutput(out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(data), "\n")
	assert.Len(t, lines, 7)
	for _, line := range lines {
		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	}
}

func TestRunExportCSV(t *testing.T) {
	path := writeCapture(t)
	out := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, RunExport(path, "csv", out))

	data, err := readOutput(out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(data), "\n")
	// Header plus one row per event.
	assert.Len(t, lines, 8)
	assert.Contains(t, lines[0], "timestamp")
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := writeCapture(t)
	err := RunExport(path, "xml", "")
	require.Error(t, err)
}

func readOutput(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

func TestParseFlags(t *testing.T) {
	layer, err := ParseLayerFlag("Transport")
	require.NoError(t, err)
	assert.Equal(t, log.LayerTransport, layer)

	_, err = ParseLayerFlag("bogus")
	require.Error(t, err)

	dir, err := ParseDirectionFlag("OUT")
	require.NoError(t, err)
	assert.Equal(t, log.DirectionOut, dir)

	cat, err := ParseCategoryFlag("state")
	require.NoError(t, err)
	assert.Equal(t, log.CategoryState, cat)
}
