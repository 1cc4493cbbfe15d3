package logbus

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogWritesFormattedLineToSink(t *testing.T) {
	var buf bytes.Buffer
	b := New(10)
	b.AddSink(&buf)

	b.Log("info", "checking availability", map[string]any{
		"url":    "https://example.com",
		"target": "Switch",
	})

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "[info] checking availability")
	// Fields are emitted in sorted key order.
	assert.Contains(t, line, "target=Switch url=https://example.com")
}

func TestLogAppendsAcrossCalls(t *testing.T) {
	var buf bytes.Buffer
	b := New(10)
	b.AddSink(&buf)

	b.Log("info", "first", nil)
	b.Log("warn", "second", nil)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[info] first")
	assert.Contains(t, lines[1], "[warn] second")
}

func TestRingBufferEviction(t *testing.T) {
	b := New(2)
	b.Log("info", "one", nil)
	b.Log("info", "two", nil)
	b.Log("info", "three", nil)

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "two", snap[0].Data.(LogData).Msg)
	assert.Equal(t, "three", snap[1].Data.(LogData).Msg)
}

func TestSubscribeReceivesMessages(t *testing.T) {
	b := New(10)
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Log("info", "hello", nil)

	msg := <-ch
	assert.Equal(t, "log", msg.Type)
	assert.Equal(t, "hello", msg.Data.(LogData).Msg)
}

func TestLogAfterCloseIsNoop(t *testing.T) {
	var buf bytes.Buffer
	b := New(10)
	b.AddSink(&buf)
	b.Close()

	b.Log("info", "after close", nil)
	assert.Empty(t, b.Snapshot())
}
