package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureSinkAppendsToFile(t *testing.T) {
	color.NoColor = true
	path := filepath.Join(t.TempDir(), "captures.log")
	require.NoError(t, os.WriteFile(path, []byte("earlier\n"), 0644))

	var console bytes.Buffer
	sink, err := newCaptureSink(&console, &Config{CaptureFile: path, Theme: defaultTheme})
	require.NoError(t, err)

	c := &CapturedRequest{
		Method:  "POST",
		Path:    "/",
		Proto:   "HTTP/1.1",
		RawBody: []byte("a=1"),
		Form:    Form{{Key: "a", Value: "1"}},
	}
	require.NoError(t, sink.Write(c))
	require.NoError(t, sink.Write(c))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "earlier\n"))
	assert.Equal(t, 2, strings.Count(string(data), `content: {"a": "1"}`))
	assert.Equal(t, string(data), "earlier\n"+console.String())
}

func TestCaptureSinkColoredConsole(t *testing.T) {
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = true })

	var console bytes.Buffer
	sink, err := newCaptureSink(&console, &Config{DumpRequest: true, Theme: "no-such-theme"})
	require.NoError(t, err)
	require.NoError(t, sink.Write(&CapturedRequest{
		Method:  "POST",
		Path:    "/",
		Proto:   "HTTP/1.1",
		Headers: []Header{{Name: "Host", Value: "example.test"}},
	}))

	out := console.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "content: {}")
	assert.Contains(t, out, "example.test")
}

func TestCaptureSinkBadFile(t *testing.T) {
	_, err := newCaptureSink(&bytes.Buffer{}, &Config{CaptureFile: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
