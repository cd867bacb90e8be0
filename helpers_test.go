package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

// syncBuffer is written by handler goroutines and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newTestServer starts the full handler over cfg.Root with captures going to the returned buffer.
func newTestServer(t *testing.T, cfg *Config) (*httptest.Server, *syncBuffer) {
	t.Helper()
	return newLoggedTestServer(t, cfg, discardLogger())
}

func newLoggedTestServer(t *testing.T, cfg *Config, logger *slog.Logger) (*httptest.Server, *syncBuffer) {
	t.Helper()
	color.NoColor = true

	if cfg.Theme == "" {
		cfg.Theme = defaultTheme
	}
	console := &syncBuffer{}
	sink, err := newCaptureSink(console, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	srv := httptest.NewServer(newHandler(cfg, sink, logger))
	t.Cleanup(srv.Close)
	return srv, console
}
